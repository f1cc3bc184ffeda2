package handlers

import (
	"github.com/contract-vault/backend/internal/http/dto"
	"github.com/contract-vault/backend/internal/middleware"
	"github.com/contract-vault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	log            *zap.Logger
}

func NewPaymentHandler(paymentService *services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, log: log}
}

func (h *PaymentHandler) FundEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	info, err := h.paymentService.FundEscrow(c.Context(), id, middleware.GetActor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.FundEscrowResponse{
		OrderID:  info.OrderID,
		Amount:   info.Amount,
		Currency: info.Currency,
		KeyID:    info.KeyID,
	})
}

// PaymentCallback accepts the gateway redirect after checkout. The caller
// is not authenticated; trust comes from the HMAC signature alone.
func (h *PaymentHandler) PaymentCallback(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	var req dto.PaymentCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	entry, replayed, err := h.paymentService.VerifyPayment(c.Context(), id, services.PaymentCallback{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.PaymentCallbackResponse{OK: true, Replayed: replayed, Status: entry.Status})
}

func (h *PaymentHandler) GetPaymentStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	contract, entries, err := h.paymentService.GetPaymentStatus(c.Context(), id, middleware.GetActor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"status": contract.Status,
		"escrow": contract.Escrow,
		"ledger": entries,
	}})
}
