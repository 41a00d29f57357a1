package portfolios

import (
	"errors"

	"piefolio-backend/internal/application/portfolios"
	"piefolio-backend/internal/middleware"
	"piefolio-backend/internal/models"
	"piefolio-backend/internal/pkg/response"
	"piefolio-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type Handlers struct {
	Service *portfolios.Service
}

type createBody struct {
	Name              string         `json:"name"`
	Description       *string        `json:"description"`
	AccountType       *string        `json:"account_type"`
	IBKRAccountID     *string        `json:"ibkr_account_id"`
	AccountMeta       datatypes.JSON `json:"account_meta"`
	AutoInvestEnabled bool           `json:"auto_invest_enabled"`
}

type updateBody struct {
	Name              *string        `json:"name"`
	Description       *string        `json:"description"`
	AccountType       *string        `json:"account_type"`
	IBKRAccountID     *string        `json:"ibkr_account_id"`
	AccountMeta       datatypes.JSON `json:"account_meta"`
	AutoInvestEnabled *bool          `json:"auto_invest_enabled"`
}

// portfolioResponse adds the computed aggregates to the stored row.
type portfolioResponse struct {
	models.Portfolio
	PieCount        int     `json:"pie_count"`
	TotalAllocation float64 `json:"total_allocation"`
}

func toResponse(p *models.Portfolio) portfolioResponse {
	total := 0.0
	for _, pie := range p.Pies {
		if pie.IsActive {
			total += pie.TargetAllocation
		}
	}
	return portfolioResponse{
		Portfolio:       *p,
		PieCount:        len(p.Pies),
		TotalAllocation: total,
	}
}

// GET /api/portfolios
func (h *Handlers) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	list, err := h.Service.GetUserPortfolios(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	out := make([]portfolioResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	return response.Success(c, "Portfolios fetched successfully", fiber.Map{
		"portfolios": out,
		"total":      len(out),
	}, nil)
}

// POST /api/portfolios
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body createBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if !validation.IsValidName(body.Name) {
		return response.BadRequest(c, "Portfolio name is required")
	}

	userID := middleware.GetUserID(c)
	portfolio, err := h.Service.Create(c.Context(), userID, portfolios.CreateInput{
		Name:              body.Name,
		Description:       body.Description,
		AccountType:       body.AccountType,
		IBKRAccountID:     body.IBKRAccountID,
		AccountMeta:       body.AccountMeta,
		AutoInvestEnabled: body.AutoInvestEnabled,
	})
	if err != nil {
		if errors.Is(err, portfolios.ErrDuplicateName) {
			return response.BadRequest(c, "Portfolio with name '"+body.Name+"' already exists")
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.SuccessCreated(c, "Portfolio created successfully", toResponse(portfolio), nil)
}

// GET /api/portfolios/:portfolio_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	portfolio, err := h.Service.GetWithDetails(c.Context(), c.Params("portfolio_id"))
	if err != nil {
		if errors.Is(err, portfolios.ErrNotFound) {
			return response.NotFound(c, portfolios.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	// Foreign portfolios read as not-found, not forbidden, on plain gets.
	if portfolio.UserID != userID {
		return response.NotFound(c, portfolios.ErrNotFound.Error())
	}
	return response.Success(c, "Portfolio fetched successfully", toResponse(portfolio), nil)
}

// PUT /api/portfolios/:portfolio_id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var body updateBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if body.Name != nil && !validation.IsValidName(*body.Name) {
		return response.BadRequest(c, "Portfolio name is required")
	}

	userID := middleware.GetUserID(c)
	portfolioID := c.Params("portfolio_id")

	existing, err := h.Service.GetByID(c.Context(), portfolioID)
	if err != nil {
		if errors.Is(err, portfolios.ErrNotFound) {
			return response.NotFound(c, portfolios.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if existing.UserID != userID {
		return response.NotFound(c, portfolios.ErrNotFound.Error())
	}

	portfolio, err := h.Service.Update(c.Context(), userID, portfolioID, portfolios.UpdateInput{
		Name:              body.Name,
		Description:       body.Description,
		AccountType:       body.AccountType,
		IBKRAccountID:     body.IBKRAccountID,
		AccountMeta:       body.AccountMeta,
		AutoInvestEnabled: body.AutoInvestEnabled,
	})
	if err != nil {
		switch {
		case errors.Is(err, portfolios.ErrDuplicateName):
			return response.BadRequest(c, "Portfolio with name '"+*body.Name+"' already exists")
		case errors.Is(err, portfolios.ErrNotFound):
			return response.NotFound(c, portfolios.ErrNotFound.Error())
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.Success(c, "Portfolio updated successfully", toResponse(portfolio), nil)
}

// DELETE /api/portfolios/:portfolio_id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	portfolioID := c.Params("portfolio_id")

	existing, err := h.Service.GetByID(c.Context(), portfolioID)
	if err != nil {
		if errors.Is(err, portfolios.ErrNotFound) {
			return response.NotFound(c, portfolios.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if existing.UserID != userID {
		return response.NotFound(c, portfolios.ErrNotFound.Error())
	}

	if err := h.Service.Delete(c.Context(), portfolioID); err != nil {
		if errors.Is(err, portfolios.ErrNotFound) {
			return response.NotFound(c, portfolios.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.NoContent(c)
}
