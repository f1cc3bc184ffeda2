package handlers

import (
	"github.com/contract-vault/backend/internal/http/dto"
	"github.com/contract-vault/backend/internal/middleware"
	"github.com/contract-vault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DisputeHandler struct {
	disputeService *services.DisputeService
	log            *zap.Logger
}

func NewDisputeHandler(disputeService *services.DisputeService, log *zap.Logger) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService, log: log}
}

func (h *DisputeHandler) NoWorkRefund(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	contract, entry, err := h.disputeService.NoWorkRefund(c.Context(), id, middleware.GetActor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"contract": contract,
		"refund":   entry,
	}})
}

func (h *DisputeHandler) RaiseWorkDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	outcome, err := h.disputeService.RaiseWorkDispute(c.Context(), id, middleware.GetActor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.DisputeResponse{
		OK:      true,
		Verdict: outcome.Verdict,
		Reason:  outcome.Reason,
		Data: fiber.Map{
			"contract": outcome.Contract,
			"refund":   outcome.Entry,
		},
	})
}
