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

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/aa87864763/wanyongzhi/internal/candidates"
	"github.com/aa87864763/wanyongzhi/internal/config"
	"github.com/aa87864763/wanyongzhi/internal/database"
	"github.com/aa87864763/wanyongzhi/internal/generator"
	"github.com/aa87864763/wanyongzhi/internal/logger"
	"github.com/aa87864763/wanyongzhi/internal/middleware"
	"github.com/aa87864763/wanyongzhi/internal/models"
	"github.com/aa87864763/wanyongzhi/internal/questions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	os.Exit(serve(cfg, lg))
}

// serve runs the server and returns the process exit code once the log is
// flushed.
func serve(cfg *config.Config, lg *zap.Logger) int {
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Question store
	var repo questions.Repository
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.Connect(cfg.DB.URL, database.Options{
			MaxOpenConns: cfg.DB.MaxOpenConns,
			MaxIdleConns: cfg.DB.MaxIdleConns,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return err
		}
		repo = questions.NewStore(db)
	default:
		repo = questions.NewMemoryStore()
	}
	lg.Info("question store ready", zap.String("driver", cfg.Store.Driver))

	// Candidate sessions
	var cache candidates.Cache
	switch cfg.Candidates.Driver {
	case "redis":
		rc, err := candidates.NewRedisCache(cfg.Redis)
		if err != nil {
			return err
		}
		defer rc.Close()
		cache = rc
	default:
		mc := candidates.NewMemoryCache(lg)
		go mc.StartJanitor(ctx, cfg.Candidates.JanitorInterval)
		cache = mc
	}

	gen := generator.NewGenerator(cfg.Generator, lg)
	service := questions.NewService(repo, gen, cache, questions.Options{
		DefaultModel:      models.ModelProvider(cfg.Generator.DefaultModel),
		MaxCount:          cfg.Generator.MaxCount,
		GenerationTimeout: cfg.Generator.Timeout,
		SessionTTL:        cfg.Candidates.TTL,
		MaxPageSize:       cfg.Query.MaxPageSize,
	}, lg)

	if cfg.Seed.File != "" {
		res, err := service.LoadSeed(ctx, cfg.Seed.File)
		if err != nil {
			return err
		}
		lg.Info("seed loaded", zap.String("file", cfg.Seed.File), zap.Int("imported", res.Imported), zap.Int("failed", res.Failed))
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(lg))
	api := r.PathPrefix("/api").Subrouter()

	var guard mux.MiddlewareFunc
	if cfg.Auth.Enabled() {
		guard = middleware.RequireToken([]byte(cfg.Auth.Secret), lg)
		lg.Info("bearer token required on mutating routes")
	}
	questions.NewHandler(service, cfg.Query.DefaultPageSize, lg).Register(api, guard)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
