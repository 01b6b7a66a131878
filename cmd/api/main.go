package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/tunisia-tours/internal/http/handlers"
	"github.com/diagnosis/tunisia-tours/internal/http/middleware"
	"github.com/diagnosis/tunisia-tours/internal/notify"
	"github.com/diagnosis/tunisia-tours/internal/platform/mailer"
	"github.com/diagnosis/tunisia-tours/internal/repo/postgres"
	"github.com/diagnosis/tunisia-tours/internal/service"
	"github.com/diagnosis/tunisia-tours/pkg/cache"
	"github.com/diagnosis/tunisia-tours/pkg/config"
	"github.com/diagnosis/tunisia-tours/pkg/database"
	"github.com/diagnosis/tunisia-tours/pkg/events"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
	mw "github.com/diagnosis/tunisia-tours/pkg/middleware"
)

const serviceName = "tunisia-tours-api"

func main() {
	if err := run(); err != nil {
		logger.Error("API exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	var eventBus events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL, serviceName)
		if err != nil {
			return err
		}
		eventBus = bus
	}
	defer eventBus.Close()

	transport, err := mailer.New(cfg.Email)
	if err != nil {
		return err
	}

	bookingRepo := postgres.NewBookingRepo(pool)
	tourRepo := postgres.NewTourRepo(pool)
	idempotencyRepo := postgres.NewIdempotencyRepo(pool)

	var idemStore mw.IdempotencyStore = idempotencyRepo
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		idemStore = cache.NewIdempotencyStore(rdb)
		logger.Info("Idempotency keys stored in Redis")
	}

	recorder := notify.MultiRecorder{
		notify.LogRecorder{},
		notify.MetricsRecorder{},
		notify.EventRecorder{Bus: eventBus},
	}
	notifier := notify.NewNotifier(tourRepo, transport, recorder, cfg.Email.OperatorEmail, cfg.Email.Subject)
	dispatcher := notify.NewDispatcher(notifier, cfg.Email.NotifyTimeout)

	bookingService := service.NewBookingService(bookingRepo, tourRepo, dispatcher, eventBus)
	tourService := service.NewTourService(tourRepo)
	h := handlers.New(bookingService, tourService)

	submit := []func(http.Handler) http.Handler{mw.IdempotencyMiddleware(idemStore, cfg.Redis.IdempotencyTTL)}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(pool, middleware.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			KeyFunc:  middleware.BookingSubmitKeyFunc,
		})
		submit = append([]func(http.Handler) http.Handler{limiter.Middleware()}, submit...)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	r.Handle("/metrics", promhttp.Handler())
	h.Mount(r, handlers.RouteOptions{
		Admin:  middleware.RequireAdmin(cfg.Auth.JWTSecret),
		Submit: submit,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting API", "port", cfg.Server.Port, "email_provider", transport.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error", "error", err)
		}
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			logger.Error("Pending notifications abandoned", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := idempotencyRepo.CleanupExpired(gctx)
				if err != nil {
					logger.Warn("Idempotency cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("Expired idempotency keys removed", "count", n)
				}
			}
		}
	})

	return g.Wait()
}
