package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func newFakeCalendarApi(t *testing.T, mux *http.ServeMux) CalendarClient {
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	factory := NewClientFactory(5*time.Second, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	client, err := factory(context.Background(), AccessGrant{AccessToken: "token", CalendarId: "primary"})
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestGoogleCalendarClient_CreateEvent(t *testing.T) {
	// given
	var received gcal.Event
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "none", r.URL.Query().Get("sendUpdates"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		received.Id = "created-1"
		writeJSON(t, w, received)
	})
	client := newFakeCalendarApi(t, mux)
	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	// when
	created, err := client.CreateEvent(context.Background(), RemoteEvent{
		Summary:      "Launch",
		Description:  SyncMarker,
		Start:        start,
		End:          start.Add(time.Hour),
		LocalEventId: "local-1",
		ErpManaged:   true,
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, "created-1", created.Id)
	assert.Equal(t, "2026-07-01T10:00:00Z", received.Start.DateTime)
	assert.Equal(t, "2026-07-01T11:00:00Z", received.End.DateTime)
	require.NotNil(t, received.ExtendedProperties)
	assert.Equal(t, "erp", received.ExtendedProperties.Private["erpSource"])
	assert.Equal(t, "local-1", received.ExtendedProperties.Private["erpEventId"])
	assert.True(t, created.ErpManaged)
	assert.True(t, start.Equal(created.Start))
}

func TestGoogleCalendarClient_UpdateEvent(t *testing.T) {
	// given
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /calendars/primary/events/g-5", func(w http.ResponseWriter, r *http.Request) {
		var event gcal.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		event.Id = "g-5"
		writeJSON(t, w, event)
	})
	mux.HandleFunc("PUT /calendars/primary/events/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
	})
	client := newFakeCalendarApi(t, mux)
	start := time.Date(2026, 7, 2, 8, 0, 0, 0, time.UTC)

	// when
	updated, err := client.UpdateEvent(context.Background(), "g-5", RemoteEvent{Summary: "Renamed", Start: start, End: start})

	// then
	require.NoError(t, err)
	assert.Equal(t, "g-5", updated.Id)
	assert.Equal(t, "Renamed", updated.Summary)

	_, err = client.UpdateEvent(context.Background(), "missing", RemoteEvent{Summary: "Gone", Start: start, End: start})
	assert.Error(t, err)
}

func TestGoogleCalendarClient_ListEvents(t *testing.T) {
	// given
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		assert.Equal(t, "2026-06-01T00:00:00Z", r.URL.Query().Get("timeMin"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, gcal.Events{
				Items: []*gcal.Event{
					{
						Id:      "timed",
						Summary: "Standup",
						Start:   &gcal.EventDateTime{DateTime: "2026-06-10T09:00:00Z"},
						End:     &gcal.EventDateTime{DateTime: "2026-06-10T09:15:00Z"},
					},
					{Id: "cancelled", Status: "cancelled"},
				},
				NextPageToken: "page-2",
			})
			return
		}
		writeJSON(t, w, gcal.Events{
			Items: []*gcal.Event{
				{
					Id:      "all-day",
					Summary: "Offsite",
					Start:   &gcal.EventDateTime{Date: "2026-06-12"},
					End:     &gcal.EventDateTime{Date: "2026-06-13"},
					ExtendedProperties: &gcal.EventExtendedProperties{
						Private: map[string]string{"erpSource": "erp", "erpEventId": "local-9"},
					},
				},
			},
		})
	})
	client := newFakeCalendarApi(t, mux)

	// when
	events, err := client.ListEvents(context.Background(),
		time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))

	// then
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "timed", events[0].Id)
	assert.False(t, events[0].AllDay)
	assert.Equal(t, "all-day", events[1].Id)
	assert.True(t, events[1].AllDay)
	assert.True(t, events[1].ErpManaged)
	assert.Equal(t, "local-9", events[1].LocalEventId)
	assert.Equal(t, 12, events[1].End.Day())
	assert.Equal(t, 23, events[1].End.Hour())
}

func TestGoogleCalendarClient_ListEvents_Failure(t *testing.T) {
	// given
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newFakeCalendarApi(t, mux)

	// when
	events, err := client.ListEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))

	// then
	assert.Error(t, err)
	assert.Nil(t, events)
}

func TestGoogleCalendarClient_WatchAndStop(t *testing.T) {
	// given
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendars/primary/events/watch", func(w http.ResponseWriter, r *http.Request) {
		var channel gcal.Channel
		require.NoError(t, json.NewDecoder(r.Body).Decode(&channel))
		assert.Equal(t, "web_hook", channel.Type)
		assert.Equal(t, "https://erp.example.com/api/integrations/google/webhook", channel.Address)
		writeJSON(t, w, gcal.Channel{Id: channel.Id, ResourceId: "res-1", Expiration: 1893456000000})
	})
	mux.HandleFunc("POST /channels/stop", func(w http.ResponseWriter, r *http.Request) {
		var channel gcal.Channel
		require.NoError(t, json.NewDecoder(r.Body).Decode(&channel))
		if channel.Id == "gone" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Channel not found"}}`))
			return
		}
		if channel.Id == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	client := newFakeCalendarApi(t, mux)

	// when
	watch, err := client.WatchCalendar(context.Background(), "https://erp.example.com/api/integrations/google/webhook", "ch-1")

	// then
	require.NoError(t, err)
	assert.Equal(t, "ch-1", watch.ChannelId)
	assert.Equal(t, "res-1", watch.ResourceId)
	assert.Equal(t, time.UnixMilli(1893456000000), watch.Expiration)

	assert.NoError(t, client.StopChannel(context.Background(), "ch-1", "res-1"))
	assert.NoError(t, client.StopChannel(context.Background(), "gone", "res-x"))
	assert.Error(t, client.StopChannel(context.Background(), "broken", "res-y"))
}
