package slices

import (
	"errors"

	"piefolio-backend/internal/application/policies/allocation"
	"piefolio-backend/internal/application/portfolios"
	"piefolio-backend/internal/application/slices"
	"piefolio-backend/internal/middleware"
	"piefolio-backend/internal/pkg/response"
	"piefolio-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service    *slices.Service
	Portfolios *portfolios.Service
}

type createBody struct {
	PortfolioID  string   `json:"portfolio_id"`
	Symbol       string   `json:"symbol"`
	Name         *string  `json:"name"`
	TargetWeight *float64 `json:"target_weight"`
	Notes        *string  `json:"notes"`
}

type updateBody struct {
	PortfolioID  string   `json:"portfolio_id"`
	Symbol       *string  `json:"symbol"`
	Name         *string  `json:"name"`
	TargetWeight *float64 `json:"target_weight"`
	Notes        *string  `json:"notes"`
	IsActive     *bool    `json:"is_active"`
}

type reorderBody struct {
	PortfolioID string   `json:"portfolio_id"`
	IDs         []string `json:"ids"`
}

func (h *Handlers) resolvePortfolio(c *fiber.Ctx, userID, explicitID string) (string, bool, error) {
	if explicitID != "" {
		if err := h.Portfolios.VerifyOwnership(c.Context(), userID, explicitID); err != nil {
			switch {
			case errors.Is(err, portfolios.ErrForbidden):
				return "", true, response.Forbidden(c, portfolios.ErrForbidden.Error())
			case errors.Is(err, portfolios.ErrNotFound):
				return "", true, response.NotFound(c, portfolios.ErrNotFound.Error())
			default:
				return "", true, response.Error(c, "Internal Server Error", 500, nil)
			}
		}
		return explicitID, false, nil
	}
	portfolioID, err := h.Portfolios.ResolveDefault(c.Context(), userID)
	if err != nil {
		return "", true, response.Error(c, "Internal Server Error", 500, nil)
	}
	return portfolioID, false, nil
}

// GET /api/pies/:pie_id/slices?include_inactive=
func (h *Handlers) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, c.Query("portfolio_id"))
	if done {
		return err
	}

	includeInactive := c.QueryBool("include_inactive", false)
	list, err := h.Service.GetAllByPie(c.Context(), c.Params("pie_id"), portfolioID, includeInactive)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Slices fetched successfully", list, nil)
}

// GET /api/pies/:pie_id/slices/:slice_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, c.Query("portfolio_id"))
	if done {
		return err
	}

	slice, err := h.Service.GetByID(c.Context(), c.Params("slice_id"), portfolioID)
	if err != nil {
		if errors.Is(err, slices.ErrNotFound) {
			return response.NotFound(c, slices.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if slice.PieID != c.Params("pie_id") {
		return response.NotFound(c, slices.ErrNotFound.Error())
	}
	return response.Success(c, "Slice fetched successfully", slice, nil)
}

// POST /api/pies/:pie_id/slices
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body createBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	symbol := validation.NormalizeSymbol(body.Symbol)
	if !validation.IsValidSymbol(symbol) {
		return response.BadRequest(c, "Invalid symbol")
	}
	if body.TargetWeight == nil {
		return response.BadRequest(c, "target_weight is required")
	}
	if *body.TargetWeight <= 0 || *body.TargetWeight > allocation.Limit {
		return response.BadRequest(c, "target_weight must be greater than 0 and at most 100")
	}

	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, body.PortfolioID)
	if done {
		return err
	}

	slice, err := h.Service.Create(c.Context(), c.Params("pie_id"), portfolioID, slices.CreateInput{
		Symbol:       symbol,
		Name:         body.Name,
		TargetWeight: *body.TargetWeight,
		Notes:        body.Notes,
	})
	if err != nil {
		var allocErr *allocation.Error
		switch {
		case errors.Is(err, slices.ErrPieNotFound):
			return response.NotFound(c, slices.ErrPieNotFound.Error())
		case errors.Is(err, slices.ErrDuplicateSymbol):
			return response.BadRequest(c, slices.ErrDuplicateSymbol.Error())
		case errors.As(err, &allocErr):
			return response.Error(c, allocErr.Error(), 400, allocErr.Details())
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.SuccessCreated(c, "Slice created successfully", slice, nil)
}

// PATCH /api/pies/:pie_id/slices/:slice_id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var body updateBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if body.Symbol != nil && !validation.IsValidSymbol(validation.NormalizeSymbol(*body.Symbol)) {
		return response.BadRequest(c, "Invalid symbol")
	}
	if body.TargetWeight != nil && (*body.TargetWeight <= 0 || *body.TargetWeight > allocation.Limit) {
		return response.BadRequest(c, "target_weight must be greater than 0 and at most 100")
	}

	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, body.PortfolioID)
	if done {
		return err
	}

	slice, err := h.Service.Update(c.Context(), c.Params("slice_id"), c.Params("pie_id"), portfolioID, slices.UpdateInput{
		Symbol:       body.Symbol,
		Name:         body.Name,
		TargetWeight: body.TargetWeight,
		Notes:        body.Notes,
		IsActive:     body.IsActive,
	})
	if err != nil {
		var allocErr *allocation.Error
		switch {
		case errors.Is(err, slices.ErrNotFound):
			return response.NotFound(c, slices.ErrNotFound.Error())
		case errors.Is(err, slices.ErrDuplicateSymbol):
			return response.BadRequest(c, slices.ErrDuplicateSymbol.Error())
		case errors.As(err, &allocErr):
			return response.Error(c, allocErr.Error(), 400, allocErr.Details())
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.Success(c, "Slice updated successfully", slice, nil)
}

// DELETE /api/pies/:pie_id/slices/:slice_id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, c.Query("portfolio_id"))
	if done {
		return err
	}

	if err := h.Service.Delete(c.Context(), c.Params("slice_id"), c.Params("pie_id"), portfolioID); err != nil {
		if errors.Is(err, slices.ErrNotFound) {
			return response.NotFound(c, slices.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.NoContent(c)
}

// POST /api/pies/:pie_id/slices/reorder
func (h *Handlers) Reorder(c *fiber.Ctx) error {
	var body reorderBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(body.IDs) == 0 {
		return response.BadRequest(c, "ids is required")
	}

	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, body.PortfolioID)
	if done {
		return err
	}

	if err := h.Service.Reorder(c.Context(), c.Params("pie_id"), portfolioID, body.IDs); err != nil {
		if errors.Is(err, slices.ErrPieNotFound) {
			return response.NotFound(c, slices.ErrPieNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.NoContent(c)
}
