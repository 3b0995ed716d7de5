package httpapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	log        logger.Logger
	httpServer *http.Server
	port       int
}

// NewApp serves the operational endpoints of a service: liveness backed by a database ping and
// the prometheus registry.
func NewApp(log logger.Logger, db pinger, port int) *App {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           Routes(log, db),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		log:        log,
		httpServer: httpServer,
		port:       port,
	}
}

func Routes(log logger.Logger, db pinger) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			log.Warn("httpapp.healthz", logger.String("error", err.Error()))
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Run blocks until the server is shut down.
func (a *App) Run() error {
	const op = "httpapp.Run"

	a.log.Info(op, logger.Int("port", a.port))

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Stop(ctx context.Context) error {
	const op = "httpapp.Stop"

	a.log.Info(op)

	return a.httpServer.Shutdown(ctx)
}
