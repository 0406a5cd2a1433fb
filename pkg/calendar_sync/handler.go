package calendar_sync

import (
	"errors"
	"net/http"
	"time"

	"github.com/adflow/erp-calendar/internal/rest"
	"github.com/adflow/erp-calendar/pkg/google"
	"github.com/adflow/erp-calendar/pkg/user"
	log "github.com/sirupsen/logrus"
)

type StatusDTO struct {
	Connected         bool   `json:"connected"`
	CalendarId        string `json:"calendarId,omitempty"`
	SyncedEventsCount int    `json:"syncedEventsCount"`
}

type SyncRequest struct {
	Action string `json:"action" validate:"required,oneof=push pull full"`
}

type SyncResultDTO struct {
	Pushed  int      `json:"pushed"`
	Pulled  int      `json:"pulled"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

type SyncResponse struct {
	Success bool          `json:"success"`
	Results SyncResultDTO `json:"results"`
}

type AutoSyncRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type AutoSyncResponse struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type Handler struct {
	engine  *Engine
	control *ControlService
}

func NewHandler(engine *Engine, control *ControlService) *Handler {
	return &Handler{engine: engine, control: control}
}

// writeError maps integration errors to the status codes the UI uses to pick a remediation.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, google.ErrNotConfigured):
		rest.WriteError(w, http.StatusServiceUnavailable, "integration_not_configured",
			"Google Calendar integration is not configured", "")
	case errors.Is(err, google.ErrNotConnected):
		rest.WriteError(w, http.StatusForbidden, "not_connected", "Google Calendar is not connected", "")
	case errors.Is(err, google.ErrTokenExpired):
		rest.WriteError(w, http.StatusUnauthorized, "token_expired", "Google Calendar access expired, please reconnect", "")
	case errors.Is(err, ErrInvalidDirection):
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid sync action", err.Error())
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusForbidden, "no_user", "User not found", "")
	default:
		log.Errorf("calendar sync request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "integration_error", "Google Calendar request failed", "")
	}
}

// GetStatus godoc
// @Summary Google Calendar sync status
// @Tags GoogleSync
// @Produce json
// @Success 200 {object} StatusDTO
// @Failure 503 {object} rest.ErrorResponse "integration_not_configured"
// @Router /api/integrations/google/sync/status [get]
// @Security XUserId
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := h.control.Status(r.Context(), userId)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, StatusDTO{
		Connected:         status.Connected,
		CalendarId:        status.CalendarId,
		SyncedEventsCount: status.SyncedEventsCount,
	})
}

// Sync godoc
// @Summary Run a Google Calendar sync
// @Description action is one of push, pull, full. Per-event failures are listed in results.errors.
// @Tags GoogleSync
// @Accept json
// @Produce json
// @Param request body SyncRequest true "Sync action"
// @Success 200 {object} SyncResponse
// @Failure 400 {object} rest.ErrorResponse
// @Failure 401 {object} rest.ErrorResponse "token_expired"
// @Failure 403 {object} rest.ErrorResponse "not_connected"
// @Failure 503 {object} rest.ErrorResponse "integration_not_configured"
// @Router /api/integrations/google/sync [post]
// @Security XUserId
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var request SyncRequest
	if err := rest.DecodeBody(r, &request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid sync action", err.Error())
		return
	}

	result, err := h.engine.Sync(r.Context(), userId, Direction(request.Action))
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, SyncResponse{
		Success: true,
		Results: SyncResultDTO{
			Pushed:  result.Pushed,
			Pulled:  result.Pulled,
			Updated: result.Updated,
			Errors:  result.Errors,
		},
	})
}

// SetAutoSync godoc
// @Summary Enable or disable Google push notifications
// @Tags GoogleSync
// @Accept json
// @Produce json
// @Param request body AutoSyncRequest true "Auto-sync flag"
// @Success 200 {object} AutoSyncResponse
// @Failure 400 {object} rest.ErrorResponse
// @Failure 503 {object} rest.ErrorResponse "integration_not_configured"
// @Router /api/integrations/google/sync/auto [put]
// @Security XUserId
func (h *Handler) SetAutoSync(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var request AutoSyncRequest
	if err := rest.DecodeBody(r, &request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid auto-sync request", err.Error())
		return
	}

	result, err := h.control.SetAutoSync(r.Context(), userId, *request.Enabled)
	if err != nil {
		writeError(w, err)
		return
	}
	message := "Auto-sync disabled"
	if result.Enabled {
		message = "Auto-sync enabled"
	}
	rest.WriteJSON(w, http.StatusOK, AutoSyncResponse{
		Success:    true,
		Message:    message,
		Expiration: result.Expiration,
	})
}

// Disconnect godoc
// @Summary Disconnect Google Calendar
// @Description Clears stored credentials and the link of every local event. Local events are kept.
// @Tags GoogleSync
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 503 {object} rest.ErrorResponse "integration_not_configured"
// @Router /api/integrations/google/sync [delete]
// @Security XUserId
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.control.Disconnect(r.Context(), userId); err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Webhook godoc
// @Summary Google Calendar push notification receiver
// @Description Always acknowledges so Google does not retry. Changes trigger a background pull sync.
// @Tags GoogleSync
// @Param X-Goog-Channel-ID header string true "Channel id"
// @Param X-Goog-Resource-ID header string false "Resource id"
// @Param X-Goog-Resource-State header string true "sync, exists or not_exists"
// @Success 200
// @Router /api/integrations/google/webhook [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	channelId := r.Header.Get("X-Goog-Channel-ID")
	if channelId == "" {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Missing channel id", "")
		return
	}
	scheduled, err := h.control.HandleNotification(r.Context(), channelId,
		r.Header.Get("X-Goog-Resource-ID"), r.Header.Get("X-Goog-Resource-State"))
	if err != nil {
		log.Errorf("failed to handle Google notification for channel %s: %v", channelId, err)
	}
	log.Tracef("Google notification on channel %s handled, sync scheduled: %t", channelId, scheduled)
	w.WriteHeader(http.StatusOK)
}
