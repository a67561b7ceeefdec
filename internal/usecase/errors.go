package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// レスポンスの errors[] の1件
type FieldError struct {
	Code       int         `json:"code"`
	Message    string      `json:"message"`
	Path       string      `json:"path,omitempty"`
	Additional interface{} `json:"additional,omitempty"`
}

// handlerでそのままHTTPレスポンスにできるエラー
type HTTPError struct {
	Status      int
	Message     string
	Description string
	Code        int
	Errors      []FieldError

	cause error
}

func (e *HTTPError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.cause }

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 404。numはクライアントがどの対象かを見分けるためのコード
func NotFound(num int, message string) error {
	return &HTTPError{Status: http.StatusNotFound, Message: message, Description: message, Code: num}
}

// 403
func Inaccessible(message string) error {
	return &HTTPError{Status: http.StatusForbidden, Message: message, Description: message}
}

// 422
func Unprocessable(code int, message string) error {
	return &HTTPError{Status: http.StatusUnprocessableEntity, Message: message, Description: message, Code: code}
}

// 409（今のステージでは許されない操作）
func Conflict(message string) error {
	return &HTTPError{Status: http.StatusConflict, Message: message, Description: message}
}

// 配列要素ごとのエラーをまとめて返す
func ListOfEntityError(status int, description string, items []FieldError) error {
	return &HTTPError{
		Status:      status,
		Message:     description,
		Description: description,
		Errors:      items,
	}
}

// 想定外のDBエラー。原因はログ用に保持する
func dbError(err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Message: "db error", cause: err}
}
