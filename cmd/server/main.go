package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sundayc666/vision-api/internal/config"
	"github.com/sundayc666/vision-api/internal/handlers"
	"github.com/sundayc666/vision-api/internal/model"
	"github.com/sundayc666/vision-api/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Printf("loading model from: %s", cfg.Model.Path)
	modelServer, err := model.NewServer(cfg.Model.Path, cfg.Model.MetadataPath)
	if err != nil {
		log.Fatalf("failed to initialize model server: %v", err)
	}
	defer modelServer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := initStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init rate-limit store: %v", err)
	}
	defer closeStore()

	handler := handlers.NewHandler(modelServer)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// /health stays outside the limiter group so infrastructure probes are
	// never rejected.
	r.Get("/health", handler.Health)
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(ratelimit.Options{Store: store}))
		r.Post("/predict", handler.Predict)
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("server listening on %s", cfg.ListenAddr)
	log.Printf("model loaded: %s (%d classes)", cfg.Model.Path, len(modelServer.Metadata.Classes))
	log.Printf("rate limits: %v (store=%s)", cfg.Policies, cfg.Store.Type)

	select {
	case <-ctx.Done():
		log.Println("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func initStore(ctx context.Context, cfg config.Config) (ratelimit.RateStore, func(), error) {
	switch cfg.Store.Type {
	case "redis":
		store, err := ratelimit.NewRedisStore(ratelimit.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, cfg.Policies)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("failed to close redis store: %v", err)
			}
		}, nil
	default:
		store := ratelimit.NewMemoryStore(cfg.Policies,
			ratelimit.WithIdleTTL(cfg.Store.IdleTTL),
			ratelimit.WithCleanupEvery(cfg.Store.CleanupEvery),
		)
		store.StartJanitor(ctx)
		return store, func() {}, nil
	}
}
