package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"porto/internal/domain/model"
	"porto/internal/geo"
	"porto/internal/usecase"

	"github.com/labstack/echo/v4"
)

// クエリを読み、最初の不正値だけを覚えておく
type queryParser struct {
	c   echo.Context
	err error
}

func newQueryParser(c echo.Context) *queryParser {
	return &queryParser{c: c}
}

func (p *queryParser) invalid(name string) {
	if p.err == nil {
		p.err = usecase.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
}

func (p *queryParser) raw(name string) (string, bool) {
	v := strings.TrimSpace(p.c.QueryParam(name))
	return v, v != ""
}

func (p *queryParser) String(name string) *string {
	v, ok := p.raw(name)
	if !ok {
		return nil
	}
	return &v
}

func (p *queryParser) Int64(name string) *int64 {
	v, ok := p.raw(name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.invalid(name)
		return nil
	}
	return &n
}

func (p *queryParser) Float(name string) *float64 {
	v, ok := p.raw(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.invalid(name)
		return nil
	}
	return &f
}

func (p *queryParser) Bool(name string) *bool {
	v, ok := p.raw(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.invalid(name)
		return nil
	}
	return &b
}

// unix秒
func (p *queryParser) Time(name string) *time.Time {
	n := p.Int64(name)
	if n == nil {
		return nil
	}
	t := time.Unix(*n, 0).UTC()
	return &t
}

// 省略時は1ページ目。1未満は400
func (p *queryParser) Page() *int {
	page := 1
	if v, ok := p.raw("page"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			p.invalid("page")
			return nil
		}
		page = n
	}
	return &page
}

// stages=created&stages=selected
func (p *queryParser) Stages(name string) []model.Stage {
	var out []model.Stage
	for _, v := range p.c.QueryParams()[name] {
		s := model.Stage(strings.ToLower(strings.TrimSpace(v)))
		if !s.Valid() {
			p.invalid(name)
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (p *queryParser) Statuses(name string) []model.ModStatus {
	var out []model.ModStatus
	for _, v := range p.c.QueryParams()[name] {
		s, err := model.ParseModStatus(v)
		if err != nil {
			p.invalid(name)
			return nil
		}
		out = append(out, s)
	}
	return out
}

// lat/lon/distance は3つそろった時だけ使われる
func (p *queryParser) Near() geo.Point {
	return geo.Point{
		Lat:      p.Float("lat"),
		Lon:      p.Float("lon"),
		Distance: p.Float("distance"),
	}
}

func (p *queryParser) Err() error { return p.err }

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func fromUnix(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}
