package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/ahmedoothman/expanders360-api/internal/logger"
	"github.com/ahmedoothman/expanders360-api/internal/metrics"
	"github.com/ahmedoothman/expanders360-api/internal/tracing"
	chiTransport "github.com/ahmedoothman/expanders360-api/internal/transport/chi"
	"github.com/ahmedoothman/expanders360-api/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, env, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		logger.Info("Starting expanders360 API server",
			zap.String("version", version.Version),
			zap.String("commit", version.Commit),
			zap.String("env", env),
			zap.Int("http_port", cfg.HTTP.Port),
			zap.String("db_driver", cfg.Database.Driver),
			zap.Bool("documents", cfg.Documents.Enabled()),
			zap.Bool("scheduler", cfg.Scheduler.IsEnabled()),
		)

		ctx := cmd.Context()
		shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version.Version,
			Environment:    env,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SampleRatio:    cfg.Tracing.SampleRatio,
		}, logger)
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}

		// Register metrics explicitly (no init())
		metrics.Register()

		a, err := newApplication(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		if cfg.Scheduler.IsEnabled() {
			schedCtx := logpkg.ContextWithLogger(context.WithoutCancel(ctx), logger)
			if err := a.scheduler.Start(schedCtx, cfg.Scheduler.RefreshSchedule, cfg.Scheduler.SLASchedule); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
		}

		// A typed nil *documentuc.Service would not compare equal to nil inside the server.
		var docs chiTransport.Documents
		if a.documents != nil {
			docs = a.documents
		}
		server := chiTransport.NewServer(a.matching, a.analytics, a.scheduler, docs, a.health, logger).
			WithInvalidator(a.analytics)

		r := chi.NewRouter()
		r.Use(jsonRecoverer(logger))
		r.Use(chiMiddleware.RequestID)
		r.Use(wideEventMiddleware(logger))
		r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
		r.Use(metrics.Middleware())
		server.Routes(r)

		addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		}

		// Graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		select {
		case <-quit:
			logger.Info("Received shutdown signal")
		case err := <-serveErr:
			logger.Error("HTTP server error", zap.Error(err))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		if cfg.Scheduler.IsEnabled() {
			select {
			case <-a.scheduler.Stop().Done():
			case <-shutdownCtx.Done():
				logger.Warn("Scheduler run still in progress at shutdown")
			}
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Error flushing traces", zap.Error(err))
		}

		logger.Info("Server stopped gracefully")
		return nil
	},
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// One line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
