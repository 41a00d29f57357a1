package pies

import (
	"errors"

	"piefolio-backend/internal/application/pies"
	"piefolio-backend/internal/application/policies/allocation"
	"piefolio-backend/internal/application/portfolios"
	"piefolio-backend/internal/middleware"
	"piefolio-backend/internal/models"
	"piefolio-backend/internal/pkg/response"
	"piefolio-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service    *pies.Service
	Portfolios *portfolios.Service
}

type createBody struct {
	PortfolioID      string   `json:"portfolio_id"`
	Name             string   `json:"name"`
	Description      *string  `json:"description"`
	Color            string   `json:"color"`
	Icon             *string  `json:"icon"`
	TargetAllocation *float64 `json:"target_allocation"`
}

type updateBody struct {
	PortfolioID      string   `json:"portfolio_id"`
	Name             *string  `json:"name"`
	Description      *string  `json:"description"`
	Color            *string  `json:"color"`
	Icon             *string  `json:"icon"`
	TargetAllocation *float64 `json:"target_allocation"`
	IsActive         *bool    `json:"is_active"`
}

type reorderBody struct {
	PortfolioID string   `json:"portfolio_id"`
	IDs         []string `json:"ids"`
}

// pieResponse is the wire shape: active slices only, plus the computed
// aggregates.
type pieResponse struct {
	models.Pie
	Slices           []models.Slice `json:"slices"`
	TotalSliceWeight float64        `json:"total_slice_weight"`
	SliceCount       int            `json:"slice_count"`
}

func toResponse(p *models.Pie) pieResponse {
	active := make([]models.Slice, 0, len(p.Slices))
	for _, s := range p.Slices {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return pieResponse{
		Pie:              *p,
		Slices:           active,
		TotalSliceWeight: p.TotalSliceWeight(),
		SliceCount:       p.SliceCount(),
	}
}

// resolvePortfolio picks the explicit portfolio (with ownership check) or the
// user's default. The bool result reports whether a response was already sent.
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

// GET /api/pies?include_inactive=&portfolio_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, c.Query("portfolio_id"))
	if done {
		return err
	}

	includeInactive := c.QueryBool("include_inactive", false)
	list, err := h.Service.GetAllByPortfolio(c.Context(), portfolioID, includeInactive)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	total, err := h.Service.TotalAllocation(c.Context(), portfolioID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}

	out := make([]pieResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	return response.Success(c, "Pies fetched successfully", fiber.Map{
		"pies":             out,
		"total_allocation": total,
	}, nil)
}

// GET /api/pies/:pie_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, c.Query("portfolio_id"))
	if done {
		return err
	}

	pie, err := h.Service.GetByID(c.Context(), c.Params("pie_id"), portfolioID)
	if err != nil {
		if errors.Is(err, pies.ErrNotFound) {
			return response.NotFound(c, pies.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Pie fetched successfully", toResponse(pie), nil)
}

// POST /api/pies
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body createBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if !validation.IsValidName(body.Name) {
		return response.BadRequest(c, "Pie name is required")
	}
	if body.Color != "" && !validation.IsValidColor(body.Color) {
		return response.BadRequest(c, "Invalid color format")
	}
	target := 0.0
	if body.TargetAllocation != nil {
		target = *body.TargetAllocation
	}
	if target < 0 || target > allocation.Limit {
		return response.BadRequest(c, "target_allocation must be between 0 and 100")
	}

	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, body.PortfolioID)
	if done {
		return err
	}

	pie, err := h.Service.Create(c.Context(), portfolioID, pies.CreateInput{
		Name:             body.Name,
		Description:      body.Description,
		Color:            body.Color,
		Icon:             body.Icon,
		TargetAllocation: target,
	})
	if err != nil {
		var allocErr *allocation.Error
		if errors.As(err, &allocErr) {
			return response.Error(c, allocErr.Error(), 400, allocErr.Details())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.SuccessCreated(c, "Pie created successfully", toResponse(pie), nil)
}

// PATCH /api/pies/:pie_id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var body updateBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if body.Name != nil && !validation.IsValidName(*body.Name) {
		return response.BadRequest(c, "Pie name is required")
	}
	if body.Color != nil && !validation.IsValidColor(*body.Color) {
		return response.BadRequest(c, "Invalid color format")
	}
	if body.TargetAllocation != nil && (*body.TargetAllocation < 0 || *body.TargetAllocation > allocation.Limit) {
		return response.BadRequest(c, "target_allocation must be between 0 and 100")
	}

	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, body.PortfolioID)
	if done {
		return err
	}

	pie, err := h.Service.Update(c.Context(), c.Params("pie_id"), portfolioID, pies.UpdateInput{
		Name:             body.Name,
		Description:      body.Description,
		Color:            body.Color,
		Icon:             body.Icon,
		TargetAllocation: body.TargetAllocation,
		IsActive:         body.IsActive,
	})
	if err != nil {
		var allocErr *allocation.Error
		switch {
		case errors.Is(err, pies.ErrNotFound):
			return response.NotFound(c, pies.ErrNotFound.Error())
		case errors.As(err, &allocErr):
			return response.Error(c, allocErr.Error(), 400, allocErr.Details())
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.Success(c, "Pie updated successfully", toResponse(pie), nil)
}

// DELETE /api/pies/:pie_id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	portfolioID, done, err := h.resolvePortfolio(c, userID, c.Query("portfolio_id"))
	if done {
		return err
	}

	if err := h.Service.Delete(c.Context(), c.Params("pie_id"), portfolioID); err != nil {
		if errors.Is(err, pies.ErrNotFound) {
			return response.NotFound(c, pies.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.NoContent(c)
}

// POST /api/pies/reorder
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

	if err := h.Service.Reorder(c.Context(), portfolioID, body.IDs); err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.NoContent(c)
}
