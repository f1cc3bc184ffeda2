package http

import (
	"time"

	"github.com/contract-vault/backend/internal/config"
	"github.com/contract-vault/backend/internal/http/handlers"
	"github.com/contract-vault/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	contractHandler *handlers.ContractHandler,
	paymentHandler *handlers.PaymentHandler,
	disputeHandler *handlers.DisputeHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Gateway callback carries its own HMAC proof instead of a session
	api.Post("/contracts/:id/payment-callback", paymentHandler.PaymentCallback)

	// Rate-limited endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Post("/me/ping", userHandler.Ping)

	// Contracts
	protected.Post("/contracts", contractHandler.CreateContract)
	protected.Get("/contracts", contractHandler.ListContracts)
	protected.Get("/contracts/:id", contractHandler.GetContract)
	protected.Get("/contracts/:id/events", contractHandler.GetContractEvents)
	protected.Post("/contracts/:id/decline", contractHandler.DeclineContract)
	protected.Post("/contracts/:id/work", contractHandler.SubmitWork)
	protected.Post("/contracts/:id/approve", contractHandler.ApproveContract)

	// Payments
	protected.Post("/contracts/:id/fund", paymentHandler.FundEscrow)
	protected.Get("/contracts/:id/payment", paymentHandler.GetPaymentStatus)

	// Disputes
	protected.Post("/disputes/:id/no-work-refund", disputeHandler.NoWorkRefund)
	protected.Post("/disputes/:id/verdict", disputeHandler.RaiseWorkDispute)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
