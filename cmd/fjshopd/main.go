package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fjShop/internal/api"
	"fjShop/internal/config"
	"fjShop/internal/store"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "path to YAML config")
		verbose = flag.Bool("v", false, "development logging")
	)
	flag.Parse()

	log := newLogger(*verbose)
	defer log.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	var runs api.RunStore
	if cfg.Store.DSN != "" {
		db, err := store.Open(ctx, cfg.Store.DSN)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		runs = store.NewRunRepository(db)
		log.Info("Database connected successfully")
	} else {
		log.Warn("No DSN configured, runs will not be persisted")
	}

	r := mux.NewRouter()
	r.Use(logRequests(log))
	api.NewHandler(runs, cfg.SA, cfg.TS, log).Routes(r)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Info("Starting server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

func newLogger(verbose bool) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if verbose {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
