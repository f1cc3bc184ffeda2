package handlers

import (
	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/http/dto"
	"github.com/contract-vault/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps the typed error taxonomy onto HTTP statuses. Unknown
// errors are logged and hidden behind a generic 500.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)

	var status int
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		status = fiber.StatusNotFound
	case errs.KindForbidden:
		status = fiber.StatusForbidden
	case errs.KindInvalidState:
		status = fiber.StatusConflict
	case errs.KindInvalidSignature:
		status = fiber.StatusBadRequest
	case errs.KindValidation:
		status = fiber.StatusBadRequest
	case errs.KindUpstreamUnavailable:
		status = fiber.StatusBadGateway
	default:
		log.Error("unhandled error", zap.String("request_id", reqID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error", RequestID: reqID})
	}

	return c.Status(status).JSON(dto.ErrorResponse{Error: errs.Reason(err), RequestID: reqID})
}
