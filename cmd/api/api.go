package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	"github.com/farxc/accurate-sales-etl/internal/config"
	"github.com/farxc/accurate-sales-etl/internal/credentials"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/store"
)

// tokenExchanger is the part of the Accurate client used by the OAuth
// bootstrap. *accurate.Client satisfies it.
type tokenExchanger interface {
	ExchangeCode(ctx context.Context, static credentials.Static, code, redirectURI string) (*accurate.TokenPair, error)
}

type application struct {
	config      *config.Configuration
	store       *store.Storage
	credentials credentials.Store
	oauth       tokenExchanger
	logger      *logger.Logger
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		r.Route("/ingestion", func(r chi.Router) {
			r.Get("/history", app.handleGetIngestionHistory)
			r.Get("/runs/{runID}", app.handleGetIngestionRun)
		})
		r.Route("/oauth", func(r chi.Router) {
			r.Get("/login", app.handleOAuthLogin)
			r.Get("/callback", app.handleOAuthCallback)
		})
	})

	return r
}

// run serves until ctx is cancelled, then drains in-flight requests.
func (app *application) run(ctx context.Context, mux http.Handler) error {
	const component = "Server"

	srv := &http.Server{
		Addr:         app.config.Server.Addr,
		Handler:      mux,
		WriteTimeout: time.Second * 120,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(component, "Server started: addr=%s", app.config.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(component, "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
