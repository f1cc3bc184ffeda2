package handlers

import (
	"strconv"

	"github.com/contract-vault/backend/internal/http/dto"
	"github.com/contract-vault/backend/internal/middleware"
	"github.com/contract-vault/backend/internal/models"
	"github.com/contract-vault/backend/internal/repositories"
	"github.com/contract-vault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContractHandler struct {
	contractService *services.ContractService
	log             *zap.Logger
}

func NewContractHandler(contractService *services.ContractService, log *zap.Logger) *ContractHandler {
	return &ContractHandler{contractService: contractService, log: log}
}

func (h *ContractHandler) CreateContract(c *fiber.Ctx) error {
	var req dto.CreateContractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	actor := middleware.GetActor(c)
	contract, err := h.contractService.CreateContract(c.Context(), actor, services.CreateContractInput{
		ClientEmail:        req.ClientEmail,
		AgencyName:         req.AgencyName,
		ProjectDescription: req.ProjectDescription,
		Tasks:              req.Tasks,
		Deadline:           req.Deadline,
		TotalAmount:        req.TotalAmount,
		Currency:           req.Currency,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: contract})
}

func (h *ContractHandler) GetContract(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	contract, err := h.contractService.GetContract(c.Context(), id, middleware.GetActor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: contract})
}

func (h *ContractHandler) ListContracts(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	filter := repositories.ContractFilter{
		Limit:  20,
		Offset: 0,
	}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}

	switch actor.Role {
	case models.RoleClient:
		filter.ClientID = &actor.ID
		filter.ClientEmail = &actor.Email
	default:
		filter.FreelancerID = &actor.ID
	}

	contracts, err := h.contractService.ListContracts(c.Context(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: contracts})
}

func (h *ContractHandler) DeclineContract(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	contract, err := h.contractService.DeclineContract(c.Context(), id, middleware.GetActor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: contract})
}

func (h *ContractHandler) SubmitWork(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	var req dto.SubmitWorkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if len(req.Links) == 0 && len(req.Attachments) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "at least one link or attachment is required"})
	}

	input := services.SubmitWorkInput{Links: req.Links}
	for _, a := range req.Attachments {
		if a.URL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "attachment url is required"})
		}
		in := services.AttachmentInput{
			URL:       a.URL,
			FileType:  a.FileType,
			StorageID: a.StorageID,
		}
		if a.UploadedAt != nil {
			in.UploadedAt = *a.UploadedAt
		}
		input.Attachments = append(input.Attachments, in)
	}

	contract, err := h.contractService.SubmitWork(c.Context(), id, middleware.GetActor(c), input)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: contract})
}

func (h *ContractHandler) ApproveContract(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	contract, entry, err := h.contractService.ApproveAndRelease(c.Context(), id, middleware.GetActor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"contract": contract,
		"payout":   entry,
	}})
}

func (h *ContractHandler) GetContractEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	if _, err := h.contractService.GetContract(c.Context(), id, middleware.GetActor(c)); err != nil {
		return respondError(c, h.log, err)
	}

	events, err := h.contractService.GetContractEvents(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: events})
}
