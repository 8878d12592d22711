package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"flatshare/internal/amqp"
	"flatshare/internal/backend"
	"flatshare/internal/cli"
	apphttp "flatshare/internal/http"
	applog "flatshare/internal/log"
	"flatshare/internal/services"
	"flatshare/internal/storage"
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentApp)
	cli.MustValidate(logger.Logger, cfg)
	roster, loc := cli.Household(logger.Logger, cfg)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	recomputer := services.NewRecomputer(store.Backend, roster)

	// A private queue: every server instance hears every change.
	amqpClient := cli.InitAMQP(logger.Logger, cfg, "")
	var publisher services.ChangePublisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:           services.NewExpenseService(store.Backend, roster, recomputer, publisher),
		Shopping:           services.NewShoppingService(store.Backend, roster, publisher),
		Balances:           recomputer,
		Pinger:             store.Backend,
		Location:           loc,
		Currency:           cfg.Currency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger.Logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := recomputer.Stop(ctx); err != nil {
			logger.Error("Recomputer shutdown error", "error", err)
		}
	})

	if err := recomputer.Start(ctx); err != nil {
		logger.Error("Failed to start recomputer", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.Consume(gctx, func(_ context.Context, msg *amqp.ChangeMessage) error {
				if msg.Entity == amqp.EntityExpense {
					recomputer.Notify()
				}
				return nil
			})
			return ignoreCanceled(err)
		})
	}

	if store.Watcher != nil {
		g.Go(func() error {
			err := store.Watcher.Run(gctx, func(c storage.Change) {
				// A zero change means notifications may have been lost.
				if c.Entity != "shopping_items" {
					recomputer.Notify()
				}
			})
			return ignoreCanceled(err)
		})
	}

	g.Go(func() error {
		logger.Info("Starting flatshare server", "port", cfg.Port, "backend", cfg.DataBackend,
			"members", roster.Len(), "currency", cfg.Currency, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = g.Wait()
	if err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
	} else {
		cli.WaitForShutdown(ctx, done)
	}

	if amqpClient != nil {
		if cerr := amqpClient.Close(); cerr != nil {
			logger.Warn("Failed to close AMQP client", "error", cerr)
		}
	}
	if store.Cleanup != nil {
		if cerr := store.Cleanup(); cerr != nil {
			logger.Warn("Failed to close backend", "error", cerr)
		}
	}
	if err != nil {
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
