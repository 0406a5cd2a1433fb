package google

import (
	"strings"
	"time"

	"github.com/adflow/erp-calendar/internal/utils"
	"github.com/adflow/erp-calendar/pkg/calendar"
)

// SyncMarker tags descriptions of events pushed from the ERP. Older pushes carry only the marker,
// newer ones also carry the private extended properties below.
const SyncMarker = "[Synced from ERP]"

const (
	propSource     = "erpSource"
	propSourceERP  = "erp"
	propLocalEvent = "erpEventId"
)

const untitled = "(untitled)"

// RemoteEvent is the provider independent shape of a Google Calendar event.
type RemoteEvent struct {
	Id          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	// LocalEventId and ErpManaged come from private extended properties.
	LocalEventId string
	ErpManaged   bool
}

// LocalToRemote builds the payload pushed to Google for a local event.
func LocalToRemote(event calendar.Event) RemoteEvent {
	end := utils.EndOfDay(event.Date)
	if event.EndDate != nil {
		end = *event.EndDate
	}

	var description strings.Builder
	description.WriteString(SyncMarker)
	if event.ProjectName != "" {
		description.WriteString("\nProject: " + event.ProjectName)
	}
	if event.Type != "" {
		description.WriteString("\nType: " + string(event.Type))
	}
	if event.Memo != "" {
		description.WriteString("\n\n" + event.Memo)
	}

	remote := RemoteEvent{
		Summary:      event.Title,
		Description:  description.String(),
		Start:        event.Date,
		End:          end,
		AllDay:       event.AllDay,
		LocalEventId: event.Id.String(),
		ErpManaged:   true,
	}
	if event.Linked() {
		remote.Id = *event.GoogleEventId
	}
	return remote
}

// RemoteToLocal maps a user authored Google event to a new local event linked to it.
func RemoteToLocal(remote RemoteEvent) calendar.Event {
	title := strings.TrimSpace(remote.Summary)
	if title == "" {
		title = untitled
	}

	googleEventId := remote.Id
	event := calendar.Event{
		Title:         title,
		Date:          remote.Start,
		Type:          calendar.Custom,
		Memo:          remote.Description,
		EndDate:       remoteEndDate(remote),
		AllDay:        remote.AllDay,
		GoogleEventId: &googleEventId,
	}
	return event
}

// RemoteChanges extracts the fields a pull copies onto an already linked local event.
func RemoteChanges(remote RemoteEvent) calendar.RemoteChanges {
	local := RemoteToLocal(remote)
	return calendar.RemoteChanges{
		Title:   local.Title,
		Date:    local.Date,
		EndDate: local.EndDate,
		AllDay:  local.AllDay,
		Memo:    local.Memo,
	}
}

// remoteEndDate is nil when the event has no distinct end, including single day all-day events.
func remoteEndDate(remote RemoteEvent) *time.Time {
	if remote.End.IsZero() || remote.End.Equal(remote.Start) {
		return nil
	}
	if remote.AllDay && sameDay(remote.Start, remote.End) {
		return nil
	}
	end := remote.End
	return &end
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsErpAuthored reports whether the event was written by the sync engine.
func IsErpAuthored(remote RemoteEvent) bool {
	return remote.ErpManaged || strings.Contains(remote.Description, SyncMarker)
}
