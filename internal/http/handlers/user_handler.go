package handlers

import (
	"github.com/contract-vault/backend/internal/http/dto"
	"github.com/contract-vault/backend/internal/middleware"
	"github.com/contract-vault/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	users *repositories.UserRepo
	log   *zap.Logger
}

func NewUserHandler(users *repositories.UserRepo, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}

func (h *UserHandler) Ping(c *fiber.Ctx) error {
	_ = h.users.UpdateLastActive(c.Context(), middleware.GetUserID(c))
	return c.JSON(dto.SuccessResponse{OK: true})
}
