package google

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/adflow/erp-calendar/internal/config"
	"github.com/adflow/erp-calendar/internal/rest"
	"github.com/adflow/erp-calendar/internal/utils"
	"github.com/adflow/erp-calendar/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const defaultCalendarId = "primary"

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

// GoogleAuth runs the OAuth connect flow and hands out valid access tokens to the sync engine.
type GoogleAuth struct {
	userService user.Service
	oauthConfig *oauth2.Config
	configured  bool
	clock       utils.Clock
}

func NewGoogleAuth(userService user.Service, cfg config.Application, clock utils.Clock) *GoogleAuth {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  strings.TrimSuffix(cfg.Host, "/") + "/api/integrations/google/auth/callback",
		Scopes:       []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope},
	}

	return &GoogleAuth{
		userService: userService,
		oauthConfig: oauthConfig,
		configured:  cfg.Google.Configured(),
		clock:       clock,
	}
}

// OAuthLogin godoc
// @Summary Start Google Calendar connection
// @Description Returns the Google consent URL. After consent the browser is sent back to finalUrl.
// @Tags Google
// @Produce json
// @Param finalUrl query string false "Where to redirect after the callback"
// @Success 200 {object} googleAuthRedirect
// @Failure 503 {object} rest.ErrorResponse
// @Router /api/integrations/google/auth/login [get]
// @Security XUserId
func (g *GoogleAuth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !g.configured {
		rest.WriteError(w, http.StatusServiceUnavailable, "integration_not_configured",
			"Google Calendar integration is not configured", "")
		return
	}

	currentUser, err := g.userService.GetCurrentUser(r.Context())
	if err != nil {
		log.Error("unable to retrieve current user: ", err)
		rest.WriteError(w, http.StatusForbidden, "no_user", "Unable to retrieve current user", "")
		return
	}

	stateNonce := uuid.New().String()
	finalUrl := r.URL.Query().Get("finalUrl")

	if err := g.userService.StoreGoogleAuthNonce(r.Context(), currentUser.Id, stateNonce); err != nil {
		log.Errorf("failed to store Google auth nonce for user %d: %v", currentUser.Id, err)
		rest.WriteError(w, http.StatusInternalServerError, "integration_error", "Failed to handle Google authentication", "")
		return
	}

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := g.oauthConfig.AuthCodeURL(finalUrl+"|"+stateNonce, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	rest.WriteJSON(w, http.StatusOK, googleAuthRedirect{RedirectUrl: u})
}

// OAuthCallback godoc
// @Summary Google OAuth callback
// @Description Exchanges the authorization code, stores the tokens and redirects to finalUrl?success=true|false
// @Tags Google
// @Param code query string true "Authorization code"
// @Param state query string true "finalUrl|nonce"
// @Success 302
// @Router /api/integrations/google/auth/callback [get]
func (g *GoogleAuth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	state := r.FormValue("state")

	finalUrl, nonce, found := strings.Cut(state, "|")
	if !found || nonce == "" {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid OAuth state", "")
		return
	}

	token, err := g.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Errorf("unable to exchange code for token: %v", err)
		http.Redirect(w, r, withSuccess(finalUrl, false), http.StatusFound)
		return
	}

	credentials := user.GoogleCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		CalendarId:   defaultCalendarId,
		SyncEnabled:  true,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		credentials.TokenExpiry = &expiry
	}

	userId, err := g.userService.ConnectGoogle(r.Context(), nonce, credentials)
	if err != nil {
		log.Errorf("unable to store Google auth token for nonce: %v", err)
		http.Redirect(w, r, withSuccess(finalUrl, false), http.StatusFound)
		return
	}
	log.Infof("Google Calendar connected for user %d", userId)
	http.Redirect(w, r, withSuccess(finalUrl, true), http.StatusFound)
}

func withSuccess(finalUrl string, success bool) string {
	value := "false"
	if success {
		value = "true"
	}
	u, err := url.Parse(finalUrl)
	if err != nil || finalUrl == "" {
		return "/?success=" + value
	}
	q := u.Query()
	q.Set("success", value)
	u.RawQuery = q.Encode()
	return u.String()
}
