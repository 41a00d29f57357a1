package user

import (
	"errors"

	usersvc "piefolio-backend/internal/application/user"
	"piefolio-backend/internal/middleware"
	"piefolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *usersvc.Service
}

type updateBody struct {
	DisplayName *string `json:"display_name"`
}

// GET /api/users/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	u, err := h.Service.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, usersvc.ErrNotFound) {
			return response.NotFound(c, usersvc.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "User fetched successfully", u, nil)
}

// PATCH /api/users/me
func (h *Handlers) UpdateMe(c *fiber.Ctx) error {
	var body updateBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	userID := middleware.GetUserID(c)
	u, err := h.Service.Update(c.Context(), userID, usersvc.UpdateInput{
		DisplayName: body.DisplayName,
	})
	if err != nil {
		if errors.Is(err, usersvc.ErrNotFound) {
			return response.NotFound(c, usersvc.ErrNotFound.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "User updated successfully", u, nil)
}
