package rbac

import (
	"net/http"

	"log/slog"

	"github.com/tutoria-app/tutoria/internal/platform/httpx"
	"github.com/tutoria-app/tutoria/internal/shared"
)

// Middleware wires the authorization gate into HTTP handlers. It is
// the single decision point: administrator bypass first, then
// permission-set containment over the session principal.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny allows the request when the principal holds at least one
// of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, false)
}

// RequireAll allows the request only when the principal holds every
// required permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, true)
}

func (m Middleware) require(perms []string, requireAll bool) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := m.currentPrincipal(r)
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
				return
			}
			allowed, err := m.Service.Authorize(r.Context(), principal, normalized, requireAll)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorize", slog.Int64("user_id", principal.ID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing required permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentPrincipal resolves the acting user from the request session.
func (m Middleware) CurrentPrincipal(r *http.Request) (Principal, bool) {
	return m.currentPrincipal(r)
}

func (m Middleware) currentPrincipal(r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.UserID() == 0 {
		return Principal{}, false
	}
	principal, err := m.Service.Principal(r.Context(), sess.UserID())
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("load principal", slog.Int64("user_id", sess.UserID()), slog.Any("error", err))
		}
		return Principal{}, false
	}
	return principal, true
}
