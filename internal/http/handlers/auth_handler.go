package handlers

import (
	"context"
	"strings"

	"github.com/contract-vault/backend/internal/auth"
	"github.com/contract-vault/backend/internal/config"
	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/http/dto"
	"github.com/contract-vault/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserAccounts is the slice of the user repository the auth handler needs.
type UserAccounts interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastActive(ctx context.Context, id uuid.UUID) error
}

type AuthHandler struct {
	users UserAccounts
	cfg   *config.Config
	log   *zap.Logger
}

func NewAuthHandler(users UserAccounts, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, cfg: cfg, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email and username are required"})
	}
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "password must be at least 8 characters"})
	}
	if req.Role != models.RoleFreelancer && req.Role != models.RoleClient {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "role must be freelancer or client"})
	}

	// Freelancers receive payouts and need a destination; clients invoice
	// under a company name.
	switch req.Role {
	case models.RoleFreelancer:
		if req.PayoutDetails == nil ||
			(req.PayoutDetails.UPIID == "" && (req.PayoutDetails.AccountNumber == "" || req.PayoutDetails.IFSCCode == "")) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "payout_details with upi_id or account_number+ifsc_code are required for freelancers"})
		}
	case models.RoleClient:
		if strings.TrimSpace(req.CompanyName) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "company_name is required for clients"})
		}
	}

	if _, err := h.users.GetByEmail(c.Context(), req.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "email already registered"})
	} else if errs.KindOf(err) != errs.KindNotFound {
		return respondError(c, h.log, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.BCryptCost)
	if err != nil {
		return respondError(c, h.log, err)
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if req.CompanyName != "" {
		user.CompanyName = &req.CompanyName
	}
	if req.PayoutDetails != nil {
		user.PayoutDetails = &models.PayoutDetails{
			AccountHolderName: req.PayoutDetails.AccountHolderName,
			AccountNumber:     req.PayoutDetails.AccountNumber,
			IFSCCode:          req.PayoutDetails.IFSCCode,
			UPIID:             req.PayoutDetails.UPIID,
		}
	}
	if req.SignatureURL != "" {
		user.SignatureURL = &req.SignatureURL
	}
	if req.SignatureHash != "" {
		user.SignatureHash = &req.SignatureHash
	}
	if err := h.users.Create(c.Context(), user); err != nil {
		return respondError(c, h.log, err)
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.ID, user.Role, user.Email, h.cfg.JWTExpiration)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	user, err := h.users.GetByEmail(c.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid credentials"})
		}
		return respondError(c, h.log, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid credentials"})
	}

	_ = h.users.UpdateLastActive(c.Context(), user.ID)

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.ID, user.Role, user.Email, h.cfg.JWTExpiration)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.AuthResponse{Token: token, User: user})
}
