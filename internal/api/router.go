package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gpufutures.com/internal/api/middleware"
	"gpufutures.com/internal/auth"
	"gpufutures.com/internal/config"
	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/infra"
)

// Router registers every route on the app.
type Router struct {
	app        *fiber.App
	cfg        *config.Config
	db         *gorm.DB
	futuresSvc domain.FuturesService
	ledgerSvc  domain.LedgerService
	wsManager  *infra.WsManager
	router     fiber.Router // /api group
}

func NewRouter(app *fiber.App, cfg *config.Config, db *gorm.DB, futuresSvc domain.FuturesService, ledgerSvc domain.LedgerService, wsManager *infra.WsManager) *Router {
	return &Router{
		app:        app,
		cfg:        cfg,
		db:         db,
		futuresSvc: futuresSvc,
		ledgerSvc:  ledgerSvc,
		wsManager:  wsManager,
	}
}

// RegisterRoutes wires auth, the public surface and the protected /api
// group.
func (r *Router) RegisterRoutes() {
	enforcer, err := auth.InitCasbin(r.db)
	if err != nil {
		log.Fatalf("Failed to initialize Casbin: %v", err)
	}

	authHandler := NewAuthHandler(r.db, r.cfg)
	futuresHandler := NewFuturesHandler(r.futuresSvc)
	ledgerHandler := NewLedgerHandler(r.ledgerSvc)

	// WebSocket event stream is public.
	InitWebsocket(r.app, r.wsManager)

	r.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Service is healthy",
		})
	})

	r.app.Post("/auth/register", authHandler.Register)
	r.app.Post("/auth/login", authHandler.Login)
	authHandler.EnsureAdminUser()

	r.router = r.app.Group("/api")
	r.router.Use(middleware.CasbinMiddleware(enforcer, r.cfg.Auth.JWTSecret))

	r.registerFuturesRoutes(futuresHandler)
	r.registerUserRoutes(futuresHandler, ledgerHandler)
	r.registerLedgerRoutes(ledgerHandler)
	r.registerAuthRoutes(authHandler)
}

func (r *Router) registerFuturesRoutes(h *FuturesHandler) {
	futures := r.router.Group("/futures")

	// Static order paths go before the :id routes.
	futures.Post("/orders", h.CreateOrder)
	futures.Get("/orders/open", h.GetOpenOrders)
	futures.Post("/orders/sweep", h.SweepExpiredOrders)
	futures.Get("/orders/:id", h.GetOrder)
	futures.Post("/orders/:id/cancel", h.CancelOrder)

	futures.Get("/contracts/:id", h.GetContract)
	futures.Post("/contracts/:id/settle", h.SettleContract)
	futures.Post("/contracts/:id/liquidate", h.Liquidate)

	futures.Get("/params", h.GetParameters)
	futures.Put("/params/collateral", h.UpdateCollateralRequirement)
	futures.Put("/params/liquidation", h.UpdateLiquidationThreshold)
	futures.Put("/params/fee", h.UpdatePlatformFee)

	futures.Get("/stats", h.GetStats)
}

func (r *Router) registerUserRoutes(h *FuturesHandler, ledger *LedgerHandler) {
	users := r.router.Group("/users/:userID")
	users.Get("/orders", h.GetUserOrders)
	users.Get("/contracts", h.GetUserContracts)
	users.Get("/balances", ledger.Balances)
}

func (r *Router) registerLedgerRoutes(h *LedgerHandler) {
	ledger := r.router.Group("/ledger")
	ledger.Post("/deposit", h.Deposit)
	ledger.Post("/withdraw", h.Withdraw)
	ledger.Post("/approve", h.ApproveVault)
	ledger.Post("/mint", h.MintTokens)
}

func (r *Router) registerAuthRoutes(h *AuthHandler) {
	r.router.Get("/auth/me", h.GetMe)
	r.router.Post("/auth/logout", h.Logout)
}
