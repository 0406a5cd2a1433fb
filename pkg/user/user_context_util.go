// Users are authenticated by the reverse proxy in front of the ERP, which forwards the user's uid
// in the X-User-Id header. The app middleware resolves that uid once per request and stores the
// User in the request context; everything below the handlers reads it from there.
package user

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey struct{}

var currentUserKey = contextKey{}

// ErrNoUser means the request carried no (known) X-User-Id header.
var ErrNoUser = errors.New("user not found in context")

func fromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(currentUserKey).(User)
	if !ok {
		log.Trace("no proxy user in request context")
	}
	return u, ok
}

// CurrentId returns the id of the user the proxy authenticated for this request.
func CurrentId(ctx context.Context) (int, error) {
	u, ok := fromContext(ctx)
	if !ok {
		return 0, ErrNoUser
	}
	return u.Id, nil
}

func CurrentUser(ctx context.Context) (User, error) {
	u, ok := fromContext(ctx)
	if !ok {
		return User{}, ErrNoUser
	}
	return u, nil
}

// WithUser attaches the resolved proxy user to ctx. Background work started from a request
// (webhook syncs) passes the user id explicitly instead of relying on this.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}
