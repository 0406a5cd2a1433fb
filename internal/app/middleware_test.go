package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adflow/erp-calendar/pkg/user"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiddlewareTest(t *testing.T) (*mux.Router, user.User) {
	repo := user.NewStubUserRepository()
	service := user.NewUserService(repo)
	u, err := service.CreateUser(context.Background(), user.User{Uid: "uid-1", Username: "planner"})
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Use(userContext(service))
	r.HandleFunc("/whoami", func(w http.ResponseWriter, req *http.Request) {
		current, err := user.CurrentUser(req.Context())
		if err != nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(current.Username))
	})
	return r, u
}

func TestUserContext(t *testing.T) {
	router, u := setupMiddlewareTest(t)

	testCases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"known user", u.Uid, http.StatusOK, "planner"},
		{"unknown user", "someone-else", http.StatusForbidden, ""},
		{"no header", "", http.StatusNoContent, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set(userIdHeader, tc.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}
