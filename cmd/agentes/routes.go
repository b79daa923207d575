package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tulugarseguro/agentes/internal/clinical"
	"github.com/tulugarseguro/agentes/internal/history"
	"github.com/tulugarseguro/agentes/internal/notification"
	"github.com/tulugarseguro/agentes/internal/ocr"
	"github.com/tulugarseguro/agentes/internal/shared/auth"
	"github.com/tulugarseguro/agentes/internal/shared/metrics"
	secmiddleware "github.com/tulugarseguro/agentes/internal/shared/middleware"
)

// requestTimeout bounds a pipeline request, model retries included.
const requestTimeout = 5 * time.Minute

// Router builds the HTTP surface. Pipeline routes are served under /api/v1
// and, for existing clients, at the root. Only /clinical/fill differs between
// the two: the root mount answers with the bare record.
func (a *App) Router() http.Handler {
	cfg := a.Config

	extractor := ocr.NewExtractor(a.Store, ocr.NewResolver(cfg.OCR.FetchTimeout), a.Model, a.Bus, a.Log, cfg.OCR.Concurrency)
	filler := clinical.NewFiller(a.Store, a.Model, a.Bus, a.Log)
	aggregator := history.NewAggregator(a.Store, a.Model, a.Bus, a.Log)
	if a.Cache != nil {
		aggregator.WithCache(a.Cache, cfg.Redis.SummaryCacheTTL)
	}
	mailer := notification.NewService(a.Store, a.Mailer, a.Bus, a.Log)

	ocrHandler := ocr.NewHandler(extractor)
	clinicalHandler := clinical.NewHandler(filler)
	historyHandler := history.NewHandler(aggregator)
	emailHandler := notification.NewHandler(mailer)

	limiter := secmiddleware.NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secmiddleware.RequestLogger(a.Log))
	r.Use(middleware.Recoverer)
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig(cfg.Server.CORSOrigins)))
	r.Use(metrics.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", a.readyHandler)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", infoHandler)

	pipeline := func(clinicalRoutes chi.Router) func(chi.Router) {
		return func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Use(limiter.Middleware)
			r.Use(secmiddleware.InputSanitizer)
			if cfg.Auth.Enabled || cfg.Server.Env == "production" {
				r.Use(auth.Middleware(cfg.Auth))
				r.Use(auth.RequireRoles(auth.RoleTherapist, auth.RoleAdmin))
			}

			r.Mount("/ocr", ocrHandler.Routes())
			r.Mount("/clinical", clinicalRoutes)
			r.Mount("/summary", historyHandler.Routes())
			r.Mount("/email", emailHandler.Routes())
		}
	}

	r.Route("/api/v1", pipeline(clinicalHandler.Routes()))
	r.Group(pipeline(clinicalHandler.RecordRoutes()))

	return r
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Tu Lugar Seguro - agentes clínicos",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"server": "ready",
	}
	allReady := true
	for _, c := range a.checks {
		if err := c.Health(ctx); err != nil {
			checks[c.Name()] = "not ready: " + err.Error()
			allReady = false
			continue
		}
		checks[c.Name()] = "ready"
	}
	if a.Cache == nil {
		checks["cache"] = "not configured"
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
		"checks": checks,
	})
}
