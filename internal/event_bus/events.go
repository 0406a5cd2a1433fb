package event_bus

const GoogleCalendarChangedType EventType = "google.calendar.changed"

// GoogleCalendarChanged is published when Google notifies that a watched calendar changed.
type GoogleCalendarChanged struct {
	UserId    int
	ChannelId string
	State     string
}
