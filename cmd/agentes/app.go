package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tulugarseguro/agentes/internal/clinical"
	"github.com/tulugarseguro/agentes/internal/history"
	"github.com/tulugarseguro/agentes/internal/llm"
	"github.com/tulugarseguro/agentes/internal/notification"
	"github.com/tulugarseguro/agentes/internal/ocr"
	"github.com/tulugarseguro/agentes/internal/records"
	"github.com/tulugarseguro/agentes/internal/shared/cache"
	"github.com/tulugarseguro/agentes/internal/shared/config"
	"github.com/tulugarseguro/agentes/internal/shared/database"
	"github.com/tulugarseguro/agentes/internal/shared/events"
	"go.uber.org/zap"
)

// recordStore is the union of what the pipeline stages read and write.
type recordStore interface {
	ocr.Store
	clinical.Store
	history.Store
	notification.Store
}

// checker is a dependency reported by /ready.
type checker interface {
	Name() string
	Health(ctx context.Context) error
}

// App holds all application dependencies
type App struct {
	Config *config.Config
	Log    *zap.Logger
	Store  recordStore
	Bus    events.EventBus
	Model  llm.Completer
	Cache  *cache.RedisKV
	Mailer notification.EmailProvider

	checks  []checker
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, memory bool) (*App, error) {
	app := &App{Config: cfg, Log: log}

	if memory {
		log.Warn("records are kept in memory and lost on restart")
		app.Store = records.NewMemoryStore()
	} else {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		app.checks = append(app.checks, db)

		if err := database.Migrate(ctx, db.Pool, log); err != nil {
			log.Warn("migration failed", zap.Error(err))
		}
		app.Store = records.NewRepository(db.Pool)
	}

	bus, err := events.NewEventBus(ctx, cfg.KurrentDB, log)
	if err != nil {
		log.Warn("KurrentDB not available, events are only logged", zap.Error(err))
		bus = events.NewLogBus(log)
	}
	app.Bus = bus
	app.closers = append(app.closers, bus.Close)
	app.checks = append(app.checks, bus)

	if !cfg.LLM.Configured() {
		log.Warn("ANTHROPIC_API_KEY not set, model-backed routes will fail")
	}
	app.Model = llm.New(cfg.LLM, log)

	if cfg.Redis.Enabled() {
		kv := cache.NewRedisKV(cache.NewRedisClient(cfg.Redis))
		app.Cache = kv
		app.closers = append(app.closers, func() { kv.Close() })
		app.checks = append(app.checks, kv)
	}

	if !cfg.SMTP.Configured() {
		log.Warn("SMTP credentials not set, clinical history delivery will fail")
	}
	app.Mailer = notification.NewSMTPProvider(cfg.SMTP)

	return app, nil
}

// Close releases dependencies in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func runServer(ctx context.Context, cfg *config.Config, log *zap.Logger, memory bool) error {
	app, err := newApp(ctx, cfg, log, memory)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
			zap.String("model", cfg.LLM.Model),
			zap.Bool("memory", memory),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
