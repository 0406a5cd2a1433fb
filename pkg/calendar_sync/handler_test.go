package calendar_sync

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adflow/erp-calendar/internal/rest"
	"github.com/adflow/erp-calendar/pkg/google"
	"github.com/adflow/erp-calendar/pkg/user"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*mux.Router, controlFixture) {
	f := setupControlTest(t)
	handler := NewHandler(f.engine, f.control)

	router := mux.NewRouter()
	router.HandleFunc("/api/integrations/google/webhook", handler.Webhook).Methods("POST")

	api := router.PathPrefix("/api/integrations/google/sync").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := user.WithUser(r.Context(), user.User{Id: f.userId})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	api.HandleFunc("/status", handler.GetStatus).Methods("GET")
	api.HandleFunc("", handler.Sync).Methods("POST")
	api.HandleFunc("", handler.Disconnect).Methods("DELETE")
	api.HandleFunc("/auto", handler.SetAutoSync).Methods("PUT")
	return router, f
}

func doRequest(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) rest.ErrorResponse {
	t.Helper()
	var response rest.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestHandler_Sync(t *testing.T) {
	// given
	router, f := setupHandlerTest(t)
	f.addLocal(t, "Kickoff", now)
	f.addLocal(t, "Broken", now.Add(time.Hour))
	f.remote.FailCreate["Broken"] = errors.New("quota exceeded")
	f.remote.AddEvent(userAuthored("Dentist", now))

	// when
	w := doRequest(router, "POST", "/api/integrations/google/sync", SyncRequest{Action: "full"})

	// then
	require.Equal(t, http.StatusOK, w.Code)
	var response SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 1, response.Results.Pushed)
	assert.Equal(t, 1, response.Results.Pulled)
	assert.Equal(t, []string{`push "Broken": quota exceeded`}, response.Results.Errors)
}

func TestHandler_Sync_EmptyErrorsAreAList(t *testing.T) {
	// given
	router, _ := setupHandlerTest(t)

	// when
	w := doRequest(router, "POST", "/api/integrations/google/sync", SyncRequest{Action: "pull"})

	// then
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"errors":[]`)
}

func TestHandler_Sync_InvalidAction(t *testing.T) {
	router, _ := setupHandlerTest(t)

	testCases := []struct {
		name string
		body any
	}{
		{"unknown action", SyncRequest{Action: "sideways"}},
		{"missing action", map[string]string{}},
		{"not json", "push"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(router, "POST", "/api/integrations/google/sync", tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "bad_request", decodeError(t, w).Code)
		})
	}
}

func TestHandler_Sync_TokenErrors(t *testing.T) {
	testCases := []struct {
		err    error
		status int
		code   string
	}{
		{google.ErrNotConfigured, http.StatusServiceUnavailable, "integration_not_configured"},
		{google.ErrNotConnected, http.StatusForbidden, "not_connected"},
		{google.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{errors.New("database is gone"), http.StatusInternalServerError, "integration_error"},
	}
	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			// given
			router, f := setupHandlerTest(t)
			f.tokens.err = tc.err

			// when
			w := doRequest(router, "POST", "/api/integrations/google/sync", SyncRequest{Action: "push"})

			// then
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestHandler_NotConfigured(t *testing.T) {
	disabled := false
	testCases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"status", "GET", "/api/integrations/google/sync/status", nil},
		{"disconnect", "DELETE", "/api/integrations/google/sync", nil},
		{"disable auto-sync", "PUT", "/api/integrations/google/sync/auto", AutoSyncRequest{Enabled: &disabled}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			router, f := setupHandlerTest(t)
			f.tokens.err = google.ErrNotConfigured

			// when
			w := doRequest(router, tc.method, tc.path, tc.body)

			// then
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Equal(t, "integration_not_configured", decodeError(t, w).Code)
		})
	}
}

func TestHandler_GetStatus(t *testing.T) {
	// given
	router, f := setupHandlerTest(t)
	f.addLocal(t, "Kickoff", now)
	_, err := f.engine.Sync(f.ctx, f.userId, Push)
	require.NoError(t, err)

	// when
	w := doRequest(router, "GET", "/api/integrations/google/sync/status", nil)

	// then
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusDTO{Connected: true, CalendarId: "primary", SyncedEventsCount: 1}, status)
}

func TestHandler_SetAutoSync(t *testing.T) {
	t.Run("should enable", func(t *testing.T) {
		router, f := setupHandlerTest(t)
		enabled := true

		w := doRequest(router, "PUT", "/api/integrations/google/sync/auto", AutoSyncRequest{Enabled: &enabled})

		require.Equal(t, http.StatusOK, w.Code)
		var response AutoSyncResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Success)
		assert.Equal(t, "Auto-sync enabled", response.Message)
		assert.NotNil(t, response.Expiration)
		assert.Equal(t, 1, f.remote.ActiveChannels())
	})

	t.Run("should require the flag", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		w := doRequest(router, "PUT", "/api/integrations/google/sync/auto", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Disconnect(t *testing.T) {
	// given
	router, f := setupHandlerTest(t)

	// when
	w := doRequest(router, "DELETE", "/api/integrations/google/sync", nil)

	// then
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	u, err := f.users.GetUser(f.ctx, f.userId)
	require.NoError(t, err)
	assert.False(t, u.Google.Connected())
}

func TestHandler_Webhook(t *testing.T) {
	router, f := setupHandlerTest(t)
	_, err := f.control.SetAutoSync(f.ctx, f.userId, true)
	require.NoError(t, err)
	channels, err := f.channels.GetChannels(f.ctx, f.userId)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		channel string
		state   string
		status  int
	}{
		{"missing channel", "", "exists", http.StatusBadRequest},
		{"handshake", channels[0].ChannelId, "sync", http.StatusOK},
		{"unknown channel", "unknown", "exists", http.StatusOK},
		{"change", channels[0].ChannelId, "exists", http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/integrations/google/webhook", nil)
			if tc.channel != "" {
				req.Header.Set("X-Goog-Channel-ID", tc.channel)
			}
			req.Header.Set("X-Goog-Resource-State", tc.state)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)
			f.bus.Wait()

			assert.Equal(t, tc.status, w.Code)
		})
	}
}
