package user

import "time"

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Google      GoogleCredentials
}

// GoogleCredentials holds the OAuth state of the user's Google Calendar connection.
type GoogleCredentials struct {
	AccessToken  string
	RefreshToken string
	TokenExpiry  *time.Time
	CalendarId   string
	SyncEnabled  bool
}

// Connected is true when an access token is stored and sync has not been disabled.
func (c GoogleCredentials) Connected() bool {
	return c.SyncEnabled && c.AccessToken != ""
}
