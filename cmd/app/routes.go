package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"exchangeservice/internal/api"
	"exchangeservice/internal/api/middleware"
	"exchangeservice/internal/service"
)

func (app *App) initHTTP(quoteService service.QuoteServiceInterface) {
	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:           app.router(quoteService),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (app *App) router(quoteService service.QuoteServiceInterface) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLoggingMiddleware(app.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", api.HandleHealth())
	r.Get("/readyz", api.HandleReadyz(app.rdbCache))
	r.Get("/exchange/{from}/{to}", api.HandleGetExchange(quoteService, app.logger))

	if app.cfg.Server.ServeSwagger {
		r.Get("/swagger/*", api.SwaggerUIHandler())
		r.Get("/openapi.json", api.OpenAPISpecHandler())
	}
	return r
}
