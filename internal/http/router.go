package http

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// RouterConfig collects the handlers mounted by NewRouter. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	Auth         *AuthHandler
	Reservations *ReservationHandler
	Settings     *SettingsHandler

	Sessions     SessionValidator
	LoginLimiter *RateLimiter
	Health       Pinger
	Metrics      http.Handler
	Observer     HTTPObserver

	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the API handler.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.writeError(r.Context(), w, http.StatusNotFound, codeNotFound, nil)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.writeError(r.Context(), w, http.StatusMethodNotAllowed, codeValidation, nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		responder.loggerFor(r.Context()).ErrorContext(r.Context(), "panic while serving request", "panic", v)
		responder.writeError(r.Context(), w, http.StatusInternalServerError, codeInternal, nil)
	}

	authed := func(h httprouter.Handle) httprouter.Handle { return h }
	if cfg.Sessions != nil {
		authed = RequireSession(cfg.Sessions, logger)
	}
	handle := func(method, path string, h httprouter.Handle) {
		router.Handle(method, path, withRoute(path, h))
	}

	if cfg.Auth != nil {
		login := cfg.Auth.Login
		if cfg.LoginLimiter != nil {
			login = cfg.LoginLimiter.Limit(login)
		}
		handle(http.MethodPost, "/api/auth/login", login)
		handle(http.MethodPost, "/api/auth/logout", cfg.Auth.Logout)
		handle(http.MethodGet, "/api/auth/me", authed(cfg.Auth.Me))
	}

	if cfg.Reservations != nil {
		handle(http.MethodGet, "/api/reservations", authed(cfg.Reservations.List))
		handle(http.MethodPost, "/api/reservations", authed(cfg.Reservations.Create))
		handle(http.MethodGet, "/api/reservations/:id", authed(cfg.Reservations.Get))
		handle(http.MethodPut, "/api/reservations/:id", authed(cfg.Reservations.Update))
		handle(http.MethodDelete, "/api/reservations/:id", authed(cfg.Reservations.Delete))
	}

	if cfg.Settings != nil {
		handle(http.MethodGet, "/api/company-color", cfg.Settings.CompanyColor)
		handle(http.MethodPut, "/api/company-color", authed(cfg.Settings.SetCompanyColor))
	}

	handle(http.MethodGet, "/healthz", healthHandler(cfg.Health, responder))
	if cfg.Metrics != nil {
		metrics := cfg.Metrics
		handle(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			metrics.ServeHTTP(w, r)
		})
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		// Credentials are only shared with origins named in configuration.
		AllowCredentials: !slices.Contains(origins, "*"),
	})

	var handler http.Handler = router
	handler = corsHandler.Handler(handler)
	handler = SecurityHeaders(handler)
	handler = RequestLogger(logger, cfg.Observer)(handler)
	return handler
}
