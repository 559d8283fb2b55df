package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"menuservice/internal/auth"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/model"
	"menuservice/internal/service"
)

// ReviewHandler handles review endpoints.
type ReviewHandler struct {
	reviewService service.ReviewService
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ReviewResponse wraps a single review.
type ReviewResponse struct {
	Success bool          `json:"success"`
	Data    *model.Review `json:"data"`
}

// ListReviews godoc
// @Summary List reviews of a menu item
// @Tags reviews
// @Produce json
// @Param menuId path string true "Menu item id"
// @Success 200 {object} query.Envelope
// @Failure 404 {object} errors.ErrorResponse
// @Router /menu/{menuId}/reviews [get]
func (h *ReviewHandler) ListReviews(c echo.Context) error {
	env, err := h.reviewService.List(c.Request().Context(), c.Param("menuId"), c.QueryParams())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, env)
}

// CreateReview godoc
// @Summary Review a menu item
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param menuId path string true "Menu item id"
// @Param request body service.ReviewInput true "Review"
// @Success 201 {object} ReviewResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /menu/{menuId}/reviews [post]
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	var in service.ReviewInput
	if err := c.Bind(&in); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	review, err := h.reviewService.Create(c.Request().Context(), c.Param("menuId"), auth.UserFromContext(c).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ReviewResponse{Success: true, Data: review})
}

// UpdateReview godoc
// @Summary Update a review
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review id"
// @Param request body service.ReviewInput true "Fields to change"
// @Success 200 {object} ReviewResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /reviews/{id} [put]
func (h *ReviewHandler) UpdateReview(c echo.Context) error {
	var in service.ReviewInput
	if err := c.Bind(&in); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	review, err := h.reviewService.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReviewResponse{Success: true, Data: review})
}

// DeleteReview godoc
// @Summary Delete a review
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review id"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	if err := h.reviewService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{}})
}
