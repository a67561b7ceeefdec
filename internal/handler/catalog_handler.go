package handler

import (
	"net/http"

	"porto/internal/config"
	"porto/internal/repository"
	"porto/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// カテゴリ一覧（公開）と管理画面での編集
type CatalogHandler struct {
	uc  *usecase.CatalogUsecase
	log *zap.Logger
}

func NewCatalogHandler(uc *usecase.CatalogUsecase, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{uc: uc, log: log}
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type SubcategoryRequest struct {
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
}

func (h *CatalogHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/categories", h.listCategories)
	e.GET("/categories/:id/subcategories", h.listSubcategories)

	mw := adminChain(cfg, userRepo)
	e.POST("/cp/categories", h.createCategory, mw...)
	e.PUT("/cp/categories/:id", h.updateCategory, mw...)
	e.DELETE("/cp/categories/:id", h.deleteCategory, mw...)
	e.POST("/cp/subcategories", h.createSubcategory, mw...)
	e.PUT("/cp/subcategories/:id", h.updateSubcategory, mw...)
	e.DELETE("/cp/subcategories/:id", h.deleteSubcategory, mw...)
}

func (h *CatalogHandler) listCategories(c echo.Context) error {
	out, pg, err := h.uc.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *CatalogHandler) listSubcategories(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.uc.ListSubcategories(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *CatalogHandler) createCategory(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.CreateCategory(c.Request().Context(), actor, usecase.CategoryInput{Name: req.Name})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *CatalogHandler) updateCategory(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.UpdateCategory(c.Request().Context(), actor, id, usecase.CategoryInput{Name: req.Name})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *CatalogHandler) deleteCategory(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.uc.DeleteCategory(c.Request().Context(), actor, id); err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, nil)
}

func (h *CatalogHandler) createSubcategory(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	var req SubcategoryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.CreateSubcategory(c.Request().Context(), actor, usecase.SubcategoryInput{Name: req.Name, CategoryID: req.CategoryID})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *CatalogHandler) updateSubcategory(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req SubcategoryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.UpdateSubcategory(c.Request().Context(), actor, id, usecase.SubcategoryInput{Name: req.Name, CategoryID: req.CategoryID})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *CatalogHandler) deleteSubcategory(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.uc.DeleteSubcategory(c.Request().Context(), actor, id); err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, nil)
}
