package ibkr

import (
	"errors"

	ibkrsvc "piefolio-backend/internal/application/ibkr"
	usersvc "piefolio-backend/internal/application/user"
	"piefolio-backend/internal/middleware"
	"piefolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves the brokerage gateway endpoints. Users is optional; when
// present the connection flag is kept in sync with the observed status.
type Handlers struct {
	Service *ibkrsvc.Service
	Users   *usersvc.Service
}

// GET /api/ibkr/status — always 200; failures are folded into the payload so
// the UI can tell "broker offline" from "not authenticated with broker".
func (h *Handlers) Status(c *fiber.Ctx) error {
	result := h.Service.Status(c.Context())

	if h.Users != nil {
		userID := middleware.GetUserID(c)
		if _, err := h.Users.SetIBKRConnected(c.Context(), userID, result.Authenticated); err != nil {
			log.Warn().Str("user_id", userID).Err(err).Msg("Failed to update IBKR connection flag")
		}
	}
	return c.JSON(result)
}

// GET /api/ibkr/accounts
func (h *Handlers) Accounts(c *fiber.Ctx) error {
	accounts, err := h.Service.Accounts(c.Context())
	if err != nil {
		var statusErr *ibkrsvc.StatusError
		switch {
		case errors.Is(err, ibkrsvc.ErrNotAuthenticated):
			return response.Unauthorized(c, err.Error())
		case errors.Is(err, ibkrsvc.ErrGatewayUnreachable):
			return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
		case errors.As(err, &statusErr):
			return response.Error(c, "Error fetching IBKR accounts", 500, map[string]interface{}{
				"status_code": statusErr.StatusCode,
			})
		default:
			return response.Error(c, "Error fetching IBKR accounts", 500, nil)
		}
	}
	return response.Success(c, "Accounts fetched successfully", accounts, nil)
}
