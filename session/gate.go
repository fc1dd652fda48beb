package session

import (
	"net/http"
	"strings"

	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
)

// Gate is the permission decision point used to show, hide, or refuse access
// to application modules. It holds no state of its own: every check reads the
// Store's live scopes.
type Gate struct {
	store *Store
}

// NewGate creates a Gate bound to the given Store.
func NewGate(store *Store) *Gate {
	return &Gate{
		store: store,
	}
}

// Allowed reports whether the current user holds any of the given
// permissions. Pure and synchronous.
func (g *Gate) Allowed(permissions ...string) bool {
	return g.store.HasPermission(permissions...)
}

// RequireAny is middleware that refuses the request unless the session holds
// at least one of the given permissions: 401 when unauthenticated, 403 when
// authenticated but not permitted.
func (g *Gate) RequireAny(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.handle(func(w http.ResponseWriter, r *http.Request) error {
			ctx := r.Context()

			if !g.store.IsAuthenticated() {
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessage("authentication required"))
			}

			if !g.store.HasPermission(permissions...) {
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage("insufficient permissions"))
			}

			next.ServeHTTP(w, r)

			return nil
		})
	}
}

// handle returns a handler that logs any error coming from our custom handlers
func (g *Gate) handle(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler(w, r); err != nil {
			if httpio.CauseIsError(err) {
				logger.Req(r).Error(err)
			} else {
				logger.Req(r).Infof("['%s']", strings.Join(httpio.Messages(err), "', '"))
			}
		}
	}
}
