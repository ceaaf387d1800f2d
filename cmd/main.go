package main

import (
	"context"
	"log"

	"gpufutures.com/internal/api"
	"gpufutures.com/internal/config"
	"gpufutures.com/internal/engine"
	"gpufutures.com/internal/event"
	"gpufutures.com/internal/infra"
	"gpufutures.com/internal/model"
	"gpufutures.com/internal/service"
)

func main() {
	cfg := config.LoadConfig()

	// Infrastructure
	pg, err := infra.NewPostgresClient(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := pg.DB

	rdb := infra.NewRedisClient(cfg.Redis)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// WebSocket hub
	wsHub := infra.NewWsManager()
	go wsHub.Start()

	// Event bus: engine events fan out through Redis, and the Redis
	// subscriber pushes them to local WebSocket clients. Every instance
	// behind a load balancer sees the same stream.
	bus := event.NewBus(1024)
	bus.Subscribe("", infra.NewRedisEventPublisher(rdb))
	infra.StartEventSubscriber(rdb, wsHub, context.Background())

	// Ledger adapters
	ledger := infra.NewGormTokenLedger(db)
	escrow := infra.NewGormNativeEscrow(db)

	// Engine: parameters come from the change log, falling back to the
	// configured bootstrap values.
	params := service.LoadParameters(db, model.ParameterSet{
		CollateralRequirementPercent: cfg.Futures.CollateralRequirementPercent,
		LiquidationThresholdPercent:  cfg.Futures.LiquidationThresholdPercent,
		PlatformFeePercent:           cfg.Futures.PlatformFeePercent,
	})

	eng := engine.New(engine.Options{
		Admin:           "admin",
		Params:          params,
		Ledger:          ledger,
		Escrow:          escrow,
		VaultAccount:    cfg.Futures.VaultAccount,
		PlatformAccount: cfg.Futures.PlatformAccount,
		Policy:          engine.DefaultLiquidationPolicy{},
		Sink: func(ev engine.Event) {
			bus.Publish(event.Event{
				Type:      ev.Type,
				Source:    "engine",
				Data:      ev.Data,
				Timestamp: ev.At,
			})
		},
	})

	// Services
	futuresSvc := service.NewFuturesService(db, eng)
	ledgerSvc := service.NewLedgerService(ledger, escrow, cfg.Futures.VaultAccount, "admin")

	if err := futuresSvc.RestoreEngine(); err != nil {
		log.Fatalf("Failed to restore engine state: %v", err)
	}

	// HTTP server
	app := api.NewServer(cfg)
	router := api.NewRouter(app, cfg, db, futuresSvc, ledgerSvc, wsHub)
	router.RegisterRoutes()

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(cfg.Server.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
