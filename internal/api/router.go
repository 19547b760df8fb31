// Package api assembles the HTTP surface: routing, middleware chain, and
// handler wiring.
package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/campus-life-events/server/internal/api/handlers"
	"github.com/campus-life-events/server/internal/api/middleware"
	"github.com/campus-life-events/server/internal/config"
	"github.com/campus-life-events/server/internal/domain/accounts"
	"github.com/campus-life-events/server/internal/domain/events"
	"github.com/campus-life-events/server/internal/domain/organizers"
	"github.com/campus-life-events/server/internal/domain/sessions"
	"github.com/campus-life-events/server/internal/metrics"
	"github.com/rs/zerolog"
)

// Deps carries everything the router needs. DB may be nil in tests; readiness
// then reports unavailable.
type Deps struct {
	Config     config.Config
	Logger     zerolog.Logger
	Accounts   *accounts.Service
	Organizers *organizers.Service
	Events     *events.Service
	Sessions   *sessions.Manager
	DB         handlers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Sessions, deps.Config.Session.CookieSecure)
	organizersHandler := handlers.NewOrganizersHandler(deps.Organizers)
	eventsHandler := handlers.NewEventsHandler(deps.Events)
	adminsHandler := handlers.NewAdminsHandler(deps.Accounts)
	auditHandler := handlers.NewAuditHandler(deps.Events)

	requireSession := middleware.SessionAuth(deps.Sessions)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(deps.DB))
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Login),
	}))
	mux.Handle("/api/v1/auth/register-info", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.RegisterInfo),
	}))
	mux.Handle("/api/v1/auth/init", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Init),
	}))
	mux.Handle("/api/v1/auth/logout", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Logout),
	}))
	mux.Handle("/api/v1/auth/me", methodMux(map[string]http.Handler{
		http.MethodGet: requireSession(http.HandlerFunc(authHandler.Me)),
	}))
	mux.Handle("/api/v1/auth/change-password", methodMux(map[string]http.Handler{
		http.MethodPost: requireSession(http.HandlerFunc(authHandler.ChangePassword)),
	}))
	mux.Handle("/api/v1/auth/request-password-reset", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.RequestPasswordReset),
	}))
	mux.Handle("/api/v1/auth/reset-password", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.ResetPassword),
	}))

	mux.Handle("/api/v1/organizers", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(organizersHandler.List),
		http.MethodPost: requireSession(http.HandlerFunc(organizersHandler.Create)),
	}))
	mux.Handle("/api/v1/organizers/admin", methodMux(map[string]http.Handler{
		http.MethodGet: requireSession(http.HandlerFunc(organizersHandler.ListAdmin)),
	}))
	mux.Handle("/api/v1/organizers/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(organizersHandler.Get),
		http.MethodPut:    requireSession(http.HandlerFunc(organizersHandler.Update)),
		http.MethodDelete: requireSession(http.HandlerFunc(organizersHandler.Delete)),
	}))
	mux.Handle("/api/v1/organizers/{id}/setup-token", methodMux(map[string]http.Handler{
		http.MethodGet:  requireSession(http.HandlerFunc(organizersHandler.GenerateSetupToken)),
		http.MethodPost: requireSession(http.HandlerFunc(organizersHandler.GenerateSetupToken)),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(eventsHandler.List),
		http.MethodPost: requireSession(http.HandlerFunc(eventsHandler.Create)),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(eventsHandler.Get),
		http.MethodPut:    requireSession(http.HandlerFunc(eventsHandler.Update)),
		http.MethodDelete: requireSession(http.HandlerFunc(eventsHandler.Delete)),
	}))

	mux.Handle("/api/v1/audit-logs", methodMux(map[string]http.Handler{
		http.MethodGet: requireSession(http.HandlerFunc(auditHandler.List)),
	}))

	mux.Handle("/api/v1/admin/invite", methodMux(map[string]http.Handler{
		http.MethodPost: requireSession(http.HandlerFunc(adminsHandler.Invite)),
	}))
	mux.Handle("/api/v1/admin/list", methodMux(map[string]http.Handler{
		http.MethodGet: requireSession(http.HandlerFunc(adminsHandler.List)),
	}))

	var handler http.Handler = mux
	if key := deps.Config.Server.CSRFKey; key != "" {
		handler = middleware.CSRFProtection([]byte(key), deps.Config.Session.CookieSecure)(handler)
	}
	handler = middleware.SecurityHeaders(deps.Config.Environment == "production")(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
