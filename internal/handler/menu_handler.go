package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"menuservice/internal/auth"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/model"
	"menuservice/internal/service"
)

// MenuHandler handles menu item endpoints.
type MenuHandler struct {
	menuService service.MenuService
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(menuService service.MenuService) *MenuHandler {
	return &MenuHandler{menuService: menuService}
}

// MenuItemResponse wraps a single menu item. CanEdit is present only when
// the viewer may change the item.
type MenuItemResponse struct {
	Success bool            `json:"success"`
	Data    *model.MenuItem `json:"data"`
	CanEdit bool            `json:"canEdit,omitempty"`
}

// CategoriesResponse lists the category aggregates.
type CategoriesResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Data    []model.Category `json:"data"`
}

// ListMenuItems godoc
// @Summary List menu items
// @Description Filters use field=value or field[op]=value with op one of gt, gte, lt, lte, in.
// @Tags menu
// @Produce json
// @Param select query string false "Comma separated fields to return"
// @Param sort query string false "Comma separated sort keys, - prefix for descending"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} query.Envelope
// @Failure 400 {object} errors.ErrorResponse
// @Router /menu [get]
func (h *MenuHandler) ListMenuItems(c echo.Context) error {
	env, err := h.menuService.List(c.Request().Context(), c.QueryParams())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, env)
}

// GetMenuItem godoc
// @Summary Get a menu item
// @Tags menu
// @Produce json
// @Param id path string true "Menu item id"
// @Success 200 {object} MenuItemResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /menu/{id} [get]
func (h *MenuHandler) GetMenuItem(c echo.Context) error {
	item, err := h.menuService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MenuItemResponse{
		Success: true,
		Data:    item,
		CanEdit: item.EditableBy(auth.UserFromContext(c)),
	})
}

// CreateMenuItem godoc
// @Summary Create a menu item
// @Tags menu
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.MenuItemInput true "Menu item"
// @Success 201 {object} MenuItemResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /menu [post]
func (h *MenuHandler) CreateMenuItem(c echo.Context) error {
	var in service.MenuItemInput
	if err := c.Bind(&in); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	item, err := h.menuService.Create(c.Request().Context(), auth.UserFromContext(c).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, MenuItemResponse{Success: true, Data: item})
}

// UpdateMenuItem godoc
// @Summary Update a menu item
// @Tags menu
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Menu item id"
// @Param request body service.MenuItemInput true "Fields to change"
// @Success 200 {object} MenuItemResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /menu/{id} [put]
func (h *MenuHandler) UpdateMenuItem(c echo.Context) error {
	var in service.MenuItemInput
	if err := c.Bind(&in); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	item, err := h.menuService.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MenuItemResponse{Success: true, Data: item})
}

// DeleteMenuItem godoc
// @Summary Delete a menu item
// @Description Also removes the item's reviews.
// @Tags menu
// @Produce json
// @Security BearerAuth
// @Param id path string true "Menu item id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errors.ErrorResponse
// @Router /menu/{id} [delete]
func (h *MenuHandler) DeleteMenuItem(c echo.Context) error {
	if err := h.menuService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{}})
}

// ListCategories godoc
// @Summary List categories with their average price
// @Tags menu
// @Produce json
// @Success 200 {object} CategoriesResponse
// @Router /categories [get]
func (h *MenuHandler) ListCategories(c echo.Context) error {
	categories, err := h.menuService.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []model.Category{}
	}
	return c.JSON(http.StatusOK, CategoriesResponse{Success: true, Count: len(categories), Data: categories})
}
