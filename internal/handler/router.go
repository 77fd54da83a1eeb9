package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// LegacySubmitPath is where older forms still post listings.
const LegacySubmitPath = "/.netlify/functions/saveListing"

type loggerKey struct{}

// NewRouter wires the HTTP API.
func NewRouter(listings *ListingHandler, allowedOrigins []string, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestLogger(logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(MethodNotAllowed)
	r.NotFound(NotFound)

	r.Get("/healthz", Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/listings", listings.SubmitListing)
		r.Get("/listings", listings.ListListings)
		r.Options("/listings", listings.Preflight)
	})

	r.Post(LegacySubmitPath, listings.SubmitListing)
	r.Options(LegacySubmitPath, listings.Preflight)

	return r
}

// RequestLogger tags every request with an X-Request-ID, reusing the
// client's when present, and stores a logger carrying it in the context.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			reqLogger := logger.With("request_id", requestID, "method", r.Method, "path", r.URL.Path)
			ctx := context.WithValue(r.Context(), loggerKey{}, reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFrom returns the request scoped logger, or the default logger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
