package app

import (
	"errors"
	"net/http"

	"github.com/adflow/erp-calendar/internal/config"
	"github.com/adflow/erp-calendar/internal/rest"
	"github.com/adflow/erp-calendar/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const userIdHeader = "X-User-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.Use(userContext(deps.UserService))
}

// userContext resolves the X-User-Id header set by the upstream proxy into the request context.
// Requests without the header pass through; Google webhooks and the OAuth callback never carry it.
func userContext(users user.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			uid := req.Header.Get(userIdHeader)
			ctx := req.Context()

			if uid != "" {
				u, err := users.GetUserByUid(ctx, uid)
				if errors.Is(err, user.ErrUserNotFound) {
					log.Debugf("user not found: %s", uid)
					rest.WriteError(w, http.StatusForbidden, "no_user", "User not found", "")
					return
				} else if err != nil {
					log.Errorf("failed to get user: %v", err)
					rest.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to resolve user", "")
					return
				}
				ctx = user.WithUser(ctx, u)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
