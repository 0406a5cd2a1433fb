package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adflow/erp-calendar/internal/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

// WatchChannel is a push notification channel registered on a calendar.
type WatchChannel struct {
	ChannelId  string
	ResourceId string
	Expiration time.Time
}

type CalendarClient interface {
	CreateEvent(ctx context.Context, event RemoteEvent) (RemoteEvent, error)
	// UpdateEvent fully replaces the remote event.
	UpdateEvent(ctx context.Context, remoteId string, event RemoteEvent) (RemoteEvent, error)
	// ListEvents returns single (expanded) events overlapping [timeMin, timeMax), cancelled ones excluded.
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]RemoteEvent, error)
	WatchCalendar(ctx context.Context, webhookUrl, channelId string) (WatchChannel, error)
	// StopChannel treats channels Google no longer knows as already stopped.
	StopChannel(ctx context.Context, channelId, resourceId string) error
}

// ClientFactory builds a CalendarClient bound to one user's grant.
type ClientFactory func(ctx context.Context, grant AccessGrant) (CalendarClient, error)

type GoogleCalendarClient struct {
	service    *gcal.Service
	calendarId string
	timeout    time.Duration
}

// NewClientFactory returns a factory creating calendar/v3 backed clients. Extra options are
// appended after the grant's token source, so tests can point the client at a fake endpoint.
func NewClientFactory(timeout time.Duration, opts ...option.ClientOption) ClientFactory {
	return func(ctx context.Context, grant AccessGrant) (CalendarClient, error) {
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: grant.AccessToken})
		clientOpts := append([]option.ClientOption{option.WithTokenSource(tokenSource)}, opts...)
		service, err := gcal.NewService(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("unable to create Calendar client: %w", err)
		}
		return &GoogleCalendarClient{
			service:    service,
			calendarId: grant.CalendarId,
			timeout:    timeout,
		}, nil
	}
}

func (c *GoogleCalendarClient) CreateEvent(ctx context.Context, event RemoteEvent) (RemoteEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.service.Events.Insert(c.calendarId, toGoogleEvent(event)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return RemoteEvent{}, fmt.Errorf("unable to insert event in Google Calendar: %w", err)
	}
	return fromGoogleEvent(created)
}

func (c *GoogleCalendarClient) UpdateEvent(ctx context.Context, remoteId string, event RemoteEvent) (RemoteEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	updated, err := c.service.Events.Update(c.calendarId, remoteId, toGoogleEvent(event)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return RemoteEvent{}, fmt.Errorf("unable to update event in Google Calendar: %w", err)
	}
	return fromGoogleEvent(updated)
}

func (c *GoogleCalendarClient) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]RemoteEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	events := make([]RemoteEvent, 0, 32)
	err := c.service.Events.List(c.calendarId).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Pages(ctx, func(page *gcal.Events) error {
			for _, item := range page.Items {
				if item.Status == "cancelled" {
					continue
				}
				event, err := fromGoogleEvent(item)
				if err != nil {
					log.Warnf("ignoring Google event %s with unreadable dates: %v", item.Id, err)
					continue
				}
				events = append(events, event)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from Google Calendar: %w", err)
	}
	return events, nil
}

func (c *GoogleCalendarClient) WatchCalendar(ctx context.Context, webhookUrl, channelId string) (WatchChannel, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	channel, err := c.service.Events.Watch(c.calendarId, &gcal.Channel{
		Id:      channelId,
		Type:    "web_hook",
		Address: webhookUrl,
	}).Context(ctx).Do()
	if err != nil {
		return WatchChannel{}, fmt.Errorf("unable to watch Google Calendar: %w", err)
	}

	watch := WatchChannel{ChannelId: channel.Id, ResourceId: channel.ResourceId}
	if channel.Expiration > 0 {
		watch.Expiration = time.UnixMilli(channel.Expiration)
	}
	return watch, nil
}

func (c *GoogleCalendarClient) StopChannel(ctx context.Context, channelId, resourceId string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.service.Channels.Stop(&gcal.Channel{Id: channelId, ResourceId: resourceId}).Context(ctx).Do()
	if isGone(err) {
		log.Debugf("Google channel %s already stopped", channelId)
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to stop Google channel: %w", err)
	}
	return nil
}

func isGone(err error) bool {
	if err == nil {
		return false
	}
	var ae *googleapi.Error
	ok := errors.As(err, &ae)
	return ok && (ae.Code == http.StatusNotFound || ae.Code == http.StatusGone)
}

func toGoogleEvent(event RemoteEvent) *gcal.Event {
	result := &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
	}
	if event.AllDay {
		// Google all-day ends are exclusive
		result.Start = &gcal.EventDateTime{Date: event.Start.Format(dateLayout)}
		result.End = &gcal.EventDateTime{Date: event.End.AddDate(0, 0, 1).Format(dateLayout)}
	} else {
		result.Start = &gcal.EventDateTime{DateTime: event.Start.Format(time.RFC3339)}
		result.End = &gcal.EventDateTime{DateTime: event.End.Format(time.RFC3339)}
	}
	if event.ErpManaged {
		result.ExtendedProperties = &gcal.EventExtendedProperties{
			Private: map[string]string{
				propSource:     propSourceERP,
				propLocalEvent: event.LocalEventId,
			},
		}
	}
	return result
}

func fromGoogleEvent(item *gcal.Event) (RemoteEvent, error) {
	event := RemoteEvent{
		Id:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
	}
	if item.ExtendedProperties != nil && item.ExtendedProperties.Private != nil {
		event.ErpManaged = item.ExtendedProperties.Private[propSource] == propSourceERP
		event.LocalEventId = item.ExtendedProperties.Private[propLocalEvent]
	}

	start, allDay, err := parseEventTime(item.Start)
	if err != nil {
		return RemoteEvent{}, fmt.Errorf("start: %w", err)
	}
	end, _, err := parseEventTime(item.End)
	if err != nil {
		return RemoteEvent{}, fmt.Errorf("end: %w", err)
	}
	if allDay {
		end = utils.EndOfDay(end.AddDate(0, 0, -1))
	}
	event.Start = start
	event.End = end
	event.AllDay = allDay
	return event, nil
}

// parseEventTime reads either a timed or an all-day value. All-day dates are placed in the
// server location.
func parseEventTime(value *gcal.EventDateTime) (time.Time, bool, error) {
	if value == nil {
		return time.Time{}, false, errors.New("missing time")
	}
	if value.DateTime != "" {
		t, err := time.Parse(time.RFC3339, value.DateTime)
		return t, false, err
	}
	if value.Date != "" {
		t, err := time.ParseInLocation(dateLayout, value.Date, time.Local)
		return t, true, err
	}
	return time.Time{}, false, errors.New("missing time")
}
