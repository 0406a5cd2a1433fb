package calendar

import (
	"errors"
	"net/http"
	"time"

	"github.com/adflow/erp-calendar/internal/rest"
	"github.com/adflow/erp-calendar/pkg/user"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	calendar *Service
}

type EventDTO struct {
	Id            string     `json:"id"`
	Title         string     `json:"title" validate:"required,max=500"`
	Date          time.Time  `json:"date" validate:"required"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	AllDay        bool       `json:"allDay"`
	Type          string     `json:"type" validate:"omitempty,oneof=project_milestone content_upload settlement payment invoice meeting deadline custom"`
	Memo          string     `json:"memo"`
	ProjectId     *int       `json:"projectId,omitempty"`
	ProjectName   string     `json:"projectName,omitempty"`
	GoogleEventId *string    `json:"googleEventId,omitempty"`
	SyncedAt      *time.Time `json:"syncedAt,omitempty"`
}

func NewHandler(s *Service) *Handler {
	return &Handler{s}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusForbidden, "no_user", "User not found", "")
	case errors.Is(err, ErrInvalidEvent):
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid event", err.Error())
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "not_found", "Event not found", "")
	default:
		log.Errorf("calendar request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal error", "")
	}
}

// GetEvents godoc
// @Summary List calendar events
// @Description Events starting in [from, to)
// @Tags Calendar
// @Produce json
// @Param from query string true "RFC3339 start (inclusive)"
// @Param to query string true "RFC3339 end (exclusive)"
// @Success 200 {array} EventDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/calendar/event [get]
// @Security XUserId
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid from (date) format", "'from' must be in RFC3339 format")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid to (date) format", "'to' must be in RFC3339 format")
		return
	}

	events, err := h.calendar.GetEvents(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// CreateEvent godoc
// @Summary Create a calendar event
// @Tags Calendar
// @Accept json
// @Produce json
// @Param event body EventDTO true "Event"
// @Success 201 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/calendar/event [post]
// @Security XUserId
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventDTO
	if err := rest.DecodeBody(r, &dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err.Error())
		return
	}

	event, err := h.calendar.AddEvent(r.Context(), dtoToEvent(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventToDTO(event))
}

// GetEvent godoc
// @Summary Get a calendar event
// @Tags Calendar
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} EventDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/calendar/event/{eventId} [get]
// @Security XUserId
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventId, err := uuid.Parse(mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid event id", err.Error())
		return
	}
	event, err := h.calendar.GetEvent(r.Context(), eventId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(event))
}

// UpdateEvent godoc
// @Summary Update a calendar event
// @Description Updates title, dates, type, memo and project. Google linkage is left untouched.
// @Tags Calendar
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param event body EventDTO true "Event"
// @Success 200 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/calendar/event/{eventId} [put]
// @Security XUserId
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventId, err := uuid.Parse(mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid event id", err.Error())
		return
	}
	var dto EventDTO
	if err := rest.DecodeBody(r, &dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err.Error())
		return
	}
	event := dtoToEvent(dto)
	event.Id = eventId

	updated, err := h.calendar.ModifyEvent(r.Context(), event)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(updated))
}

// DeleteEvent godoc
// @Summary Delete a calendar event
// @Tags Calendar
// @Param eventId path string true "Event ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/calendar/event/{eventId} [delete]
// @Security XUserId
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventId, err := uuid.Parse(mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid event id", err.Error())
		return
	}
	if err := h.calendar.DeleteEvent(r.Context(), eventId); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func eventToDTO(e Event) EventDTO {
	return EventDTO{
		Id:            e.Id.String(),
		Title:         e.Title,
		Date:          e.Date,
		EndDate:       e.EndDate,
		AllDay:        e.AllDay,
		Type:          string(e.Type),
		Memo:          e.Memo,
		ProjectId:     e.ProjectId,
		ProjectName:   e.ProjectName,
		GoogleEventId: e.GoogleEventId,
		SyncedAt:      e.SyncedAt,
	}
}

// dtoToEvent ignores the read-only linkage fields of the DTO.
func dtoToEvent(dto EventDTO) Event {
	return Event{
		Title:     dto.Title,
		Date:      dto.Date,
		EndDate:   dto.EndDate,
		AllDay:    dto.AllDay,
		Type:      EventType(dto.Type),
		Memo:      dto.Memo,
		ProjectId: dto.ProjectId,
	}
}
