// Package oryxrest provides REST API utilities with CORS support and common middleware.
package oryxrest

import (
	"fmt"
	"net/http"

	oryxcli "github.com/oryx-news/oryx/oryx-cli"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/savaki/apigateway"
)

func Middlewares(service oryxcli.Service, routes chi.Router) chi.Router {
	routes.Use(
		withCORS(),
		withLogger(oryxcli.Logger(service)),
		WithIdentity,
		middleware.Recoverer,
	)
	return routes
}

func Webserver(service oryxcli.Service, routes chi.Router) error {
	logger := oryxcli.Logger(service)

	if oryxcli.CommonOpts.Console {
		logger.Info().Int("port", oryxcli.CommonOpts.Port).Msg("starting http server")
		addr := fmt.Sprintf(":%v", oryxcli.CommonOpts.Port)
		return http.ListenAndServe(addr, routes)
	}

	lambda.Start(apigateway.Wrap(routes, oryxcli.CommonOpts.Env))
	return nil
}

// CacheControl marks a read-only handler's responses as cacheable for maxAge
// seconds.
func CacheControl(handler http.HandlerFunc, maxAge int) http.HandlerFunc {
	value := fmt.Sprintf("max-age=%v", maxAge)
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", value)
		handler.ServeHTTP(w, req)
	}
}

func withCORS() func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
	})
}

func withLogger(logger zerolog.Logger) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := logger.WithContext(req.Context())
			req = req.WithContext(ctx)
			handler.ServeHTTP(w, req)
		})
	}
}
