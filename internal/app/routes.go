package app

import (
	"github.com/adflow/erp-calendar/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")

	// Calendar
	r.HandleFunc("/api/calendar/event", deps.CalendarHandler.GetEvents).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/calendar/event", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/calendar/event/{eventId}", deps.CalendarHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/calendar/event/{eventId}", deps.CalendarHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/calendar/event/{eventId}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")

	// Google integration
	r.HandleFunc("/api/integrations/google/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/google/webhook", deps.SyncHandler.Webhook).Methods("POST")

	// Google Calendar sync
	r.HandleFunc("/api/integrations/google/sync/status", deps.SyncHandler.GetStatus).Methods("GET")
	r.HandleFunc("/api/integrations/google/sync", deps.SyncHandler.Sync).Methods("POST")
	r.HandleFunc("/api/integrations/google/sync", deps.SyncHandler.Disconnect).Methods("DELETE")
	r.HandleFunc("/api/integrations/google/sync/auto", deps.SyncHandler.SetAutoSync).Methods("PUT")
}
