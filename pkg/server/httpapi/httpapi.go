// Package httpapi serves the catalog over HTTP/JSON. It decodes requests, resolves the
// caller and encodes responses; every decision is made by pkg/server.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/internal/authn"
	"github.com/ontologymarket/catalog/pkg/logger"
	"github.com/ontologymarket/catalog/pkg/middleware"
	"github.com/ontologymarket/catalog/pkg/middleware/logging"
	"github.com/ontologymarket/catalog/pkg/middleware/recovery"
	"github.com/ontologymarket/catalog/pkg/middleware/requestid"
	"github.com/ontologymarket/catalog/pkg/server"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
)

const maxBodyBytes = 4 << 20

type Handler struct {
	server        *server.Server
	authenticator authn.Authenticator
	logger        logger.Logger

	allowedOrigins []string
	tracing        bool
	requestTimeout time.Duration
}

type HandlerOption func(*Handler)

func WithLogger(l logger.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithCORSAllowedOrigins sets the origins allowed by CORS. "*" allows any origin.
func WithCORSAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		h.allowedOrigins = origins
	}
}

// WithTracing wraps the handler with otelhttp.
func WithTracing(enabled bool) HandlerOption {
	return func(h *Handler) {
		h.tracing = enabled
	}
}

func WithRequestTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.requestTimeout = timeout
	}
}

// NewHandler returns the root handler: the routes wrapped by panic recovery, CORS,
// tracing, request ids, request logging and the request timeout, in that order.
func NewHandler(s *server.Server, authenticator authn.Authenticator, opts ...HandlerOption) http.Handler {
	h := &Handler{
		server:         s,
		authenticator:  authenticator,
		logger:         logger.NewNoopLogger(),
		allowedOrigins: []string{"*"},
	}

	for _, opt := range opts {
		opt(h)
	}

	var handler http.Handler = h.routes()
	handler = middleware.NewTimeoutHandler(h.requestTimeout).Handler(handler)
	handler = logging.NewHTTPLoggingMiddleware(h.logger)(handler)
	handler = requestid.NewHTTPMiddleware(handler)
	if h.tracing {
		handler = otelhttp.NewHandler(handler, "catalog")
	}
	handler = cors.New(cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestid.RequestIDHeader, "ETag"},
		AllowCredentials: true,
	}).Handler(handler)

	return recovery.HTTPPanicRecoveryHandler(handler, h.logger)
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate(false))
		r.Get("/search_ontologies", h.search)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate(true))
		r.Get("/test-auth", h.testAuth)
		r.Post("/add_ontologies", h.addRecords)
		r.Put("/update_ontology/{ontology_id}", h.updateRecord)
		r.Delete("/delete_ontologies", h.deleteRecords)
		r.Post("/ontologies/{ontology_id}/capabilities", h.grantCapability)
		r.Delete("/ontologies/{ontology_id}/capabilities", h.revokeCapability)
		r.Get("/user_profile", h.userProfile)
		r.Put("/user_profile", h.updateUserProfile)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, serverErrors.NotFoundError("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"success": false,
			"message": "Method not allowed",
		})
	})

	return r
}

// authenticate resolves the bearer token into an identity. When required is false a
// request without an Authorization header proceeds anonymously, but a malformed or
// rejected header is still refused.
func (h *Handler) authenticate(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && !required {
				next.ServeHTTP(w, r)
				return
			}

			bearer, err := authn.BearerFromHeader(header)
			if err != nil {
				if errors.Is(err, authn.ErrMissingBearerToken) {
					h.writeError(w, r, serverErrors.AuthenticationError(nil))
					return
				}
				h.writeError(w, r, serverErrors.AuthenticationError(err))
				return
			}

			identity, err := h.authenticator.Authenticate(r.Context(), bearer)
			if err != nil {
				h.logger.DebugWithContext(r.Context(), "authentication failed", zap.Error(err))
				h.writeError(w, r, serverErrors.AuthenticationError(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(authn.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := serverErrors.HTTPStatus(err)
	kind := serverErrors.KindOf(err)

	if status >= http.StatusInternalServerError {
		h.logger.ErrorWithContext(r.Context(), "request failed", zap.Stringer("kind", kind), zap.Error(err), zap.NamedError("cause", errors.Unwrap(err)))
	}

	if kind == serverErrors.KindAuthentication {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	if kind == serverErrors.KindUnknown {
		kind = serverErrors.KindStore
	}

	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   kind.String(),
		"message": serverErrors.PublicMessage(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return serverErrors.ValidationErrorf("Invalid request body: %s", err.Error())
	}
	return nil
}
