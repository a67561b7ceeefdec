package middleware

import (
	"net/http"

	"porto/internal/repository"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionが一致し、ユーザーが有効か確認。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return unauthorized(c)
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return unauthorized(c)
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return unauthorized(c)
			}

			//強制ログアウト扱い
			if user.TokenVersion != tv {
				return unauthorized(c)
			}
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorJSON("inactive user"))
			}

			//DB上のroleを正とする
			c.Set(CtxUserRoleKey, string(user.Role))
			return next(c)
		}
	}
}
