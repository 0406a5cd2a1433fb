package calendar

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	ProjectMilestone EventType = "project_milestone"
	ContentUpload    EventType = "content_upload"
	Settlement       EventType = "settlement"
	Payment          EventType = "payment"
	Invoice          EventType = "invoice"
	Meeting          EventType = "meeting"
	Deadline         EventType = "deadline"
	Custom           EventType = "custom"
)

var eventTypes = []EventType{ProjectMilestone, ContentUpload, Settlement, Payment, Invoice, Meeting, Deadline, Custom}

func (t EventType) Valid() bool {
	for _, known := range eventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is an agency calendar entry. GoogleEventId and SyncedAt are owned by the sync engine.
type Event struct {
	Id            uuid.UUID
	UserId        int
	Title         string
	Date          time.Time
	EndDate       *time.Time
	// AllDay events span whole days; Date is midnight of the first day, EndDate (if set)
	// the end of the last day.
	AllDay        bool
	Type          EventType
	Memo          string
	ProjectId     *int
	ProjectName   string
	GoogleEventId *string
	SyncedAt      *time.Time
}

// Linked reports whether the event is paired with a Google Calendar event.
func (e Event) Linked() bool {
	return e.GoogleEventId != nil && *e.GoogleEventId != ""
}

// RemoteChanges are the fields a pull copies from Google onto an already linked event.
type RemoteChanges struct {
	Title   string
	Date    time.Time
	EndDate *time.Time
	AllDay  bool
	Memo    string
}
