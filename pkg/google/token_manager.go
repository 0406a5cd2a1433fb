package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adflow/erp-calendar/pkg/user"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var (
	ErrNotConfigured = errors.New("google calendar integration is not configured")
	ErrNotConnected  = errors.New("google calendar is not connected")
	ErrTokenExpired  = errors.New("google calendar token expired, reconnect required")
)

// refreshMargin is how close to expiry a token may get before it is refreshed.
const refreshMargin = 5 * time.Minute

// defaultTokenLifetime is assumed when the provider omits expires_in on refresh.
const defaultTokenLifetime = time.Hour

// AccessGrant is what the sync engine needs to talk to the user's calendar.
type AccessGrant struct {
	AccessToken string
	CalendarId  string
}

// Configured reports whether OAuth client credentials were provided for this deployment.
func (g *GoogleAuth) Configured() bool {
	return g.configured
}

// GetValidAccessToken returns a usable access token for the user, refreshing it when it is
// about to expire. A nil grant is always accompanied by ErrNotConfigured, ErrNotConnected,
// ErrTokenExpired or an unexpected storage error.
func (g *GoogleAuth) GetValidAccessToken(ctx context.Context, userId int) (*AccessGrant, error) {
	if !g.configured {
		return nil, ErrNotConfigured
	}

	u, err := g.userService.GetUser(ctx, userId)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrNotConnected
	} else if err != nil {
		return nil, fmt.Errorf("unable to load Google credentials: %w", err)
	}

	credentials := u.Google
	if !credentials.Connected() {
		return nil, ErrNotConnected
	}

	calendarId := credentials.CalendarId
	if calendarId == "" {
		calendarId = defaultCalendarId
	}

	now := g.clock.Now()
	if credentials.TokenExpiry != nil && credentials.TokenExpiry.After(now.Add(refreshMargin)) {
		return &AccessGrant{AccessToken: credentials.AccessToken, CalendarId: calendarId}, nil
	}

	if credentials.RefreshToken == "" {
		log.Warnf("Google token of user %d is expiring and no refresh token is stored", userId)
		return nil, ErrTokenExpired
	}

	// a token without access token is never valid, so the source always hits the token endpoint
	token, err := g.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: credentials.RefreshToken}).Token()
	if err != nil {
		log.Errorf("failed to refresh Google token of user %d: %v", userId, err)
		return nil, ErrTokenExpired
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = now.Add(defaultTokenLifetime)
	}
	if err := g.userService.UpdateGoogleToken(ctx, userId, token.AccessToken, expiry); err != nil {
		return nil, fmt.Errorf("unable to persist refreshed Google token: %w", err)
	}
	log.Debugf("Refreshed Google token of user %d, valid until %s", userId, expiry.Format(time.RFC3339))

	return &AccessGrant{AccessToken: token.AccessToken, CalendarId: calendarId}, nil
}
