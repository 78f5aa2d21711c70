package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func newServeCommand() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rt, err := loadRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(context.Background())
			return serve(ctx, rt, shutdownTimeout)
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "Maximum time to wait for graceful shutdown")
	return cmd
}

func serve(ctx context.Context, rt *runtime, shutdownTimeout time.Duration) error {
	cfg, logger := rt.cfg, rt.logger

	// Mongo indexes are cheap and idempotent, so they are always ensured.
	if cfg.Storage.Driver == config.StorageMongo || (cfg.Storage.Driver == config.StoragePostgres && cfg.Postgres.RunMigrations) {
		if err := rt.migrate(ctx); err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics("helpdesk")
	dispatcher := events.NewInMemoryDispatcher(logger)

	rt.nats = persistence.NewNATS(cfg.NATS, cfg.App.Name, logger)
	var forwarder *events.NATSForwarder
	if rt.nats.Conn != nil {
		forwarder = events.NewNATSForwarder(rt.nats.Conn, cfg.NATS.SubjectPrefix)
	}
	notificationService := service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification)
	worker.StartNotificationWorker(notificationService, dispatcher, forwarder)

	settingsService := service.NewSettingsService(service.SettingsDependencies{
		SettingsRepo: rt.store.Settings,
		Redis:        rt.redis.Handle(),
		CacheTTL:     cfg.Settings.CacheTTL(),
		Logger:       logger,
	})
	identityService := service.NewIdentityService(*cfg, service.IdentityDependencies{
		IdentityRepo: rt.store.Identities,
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   rt.store.Tickets,
		IdentityRepo: rt.store.Identities,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{
		TicketRepo: rt.store.Tickets,
		Settings:   settingsService,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, rt.dependencyChecks()...),
		Tickets:        handlers.NewTicketsHandler(ticketService, settingsService, logger),
		Auth:           handlers.NewAuthHandler(identityService),
		Users:          handlers.NewUsersHandler(identityService),
		Customization:  handlers.NewCustomizationHandler(settingsService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		AuthMiddleware: auth.NewAuthMiddleware(identityService),
		Metrics:        metrics,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-listenErr:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}
