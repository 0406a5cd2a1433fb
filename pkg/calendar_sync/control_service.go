package calendar_sync

import (
	"context"
	"fmt"
	"time"

	"github.com/adflow/erp-calendar/internal/event_bus"
	"github.com/adflow/erp-calendar/pkg/calendar"
	"github.com/adflow/erp-calendar/pkg/google"
	"github.com/adflow/erp-calendar/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// resourceStateSync is the handshake Google sends right after a channel is created.
const resourceStateSync = "sync"

type Status struct {
	Connected         bool
	CalendarId        string
	SyncedEventsCount int
}

type AutoSyncResult struct {
	Enabled    bool
	Expiration *time.Time
}

// ControlService backs the status, disconnect, auto-sync and webhook endpoints.
type ControlService struct {
	users      user.Service
	tokens     TokenProvider
	newClient  google.ClientFactory
	events     calendar.Repository
	channels   ChannelRepository
	bus        *event_bus.EventBus
	webhookUrl string
}

func NewControlService(
	users user.Service,
	tokens TokenProvider,
	newClient google.ClientFactory,
	events calendar.Repository,
	channels ChannelRepository,
	bus *event_bus.EventBus,
	webhookUrl string,
) *ControlService {
	return &ControlService{
		users:      users,
		tokens:     tokens,
		newClient:  newClient,
		events:     events,
		channels:   channels,
		bus:        bus,
		webhookUrl: webhookUrl,
	}
}

func (s *ControlService) Status(ctx context.Context, userId int) (Status, error) {
	if !s.tokens.Configured() {
		return Status{}, google.ErrNotConfigured
	}
	u, err := s.users.GetUser(ctx, userId)
	if err != nil {
		return Status{}, fmt.Errorf("failed to load user: %w", err)
	}
	count, err := s.events.CountLinked(ctx, userId)
	if err != nil {
		return Status{}, err
	}

	status := Status{
		Connected:         u.Google.Connected(),
		SyncedEventsCount: count,
	}
	if status.Connected {
		status.CalendarId = u.Google.CalendarId
		if status.CalendarId == "" {
			status.CalendarId = "primary"
		}
	}
	return status, nil
}

// Disconnect stops notifications, forgets the Google credentials and removes every link between
// local and Google events. Local events themselves are kept.
func (s *ControlService) Disconnect(ctx context.Context, userId int) error {
	if !s.tokens.Configured() {
		return google.ErrNotConfigured
	}
	if err := s.stopChannels(ctx, userId); err != nil {
		return err
	}
	if err := s.users.DisconnectGoogle(ctx, userId); err != nil {
		return fmt.Errorf("failed to clear Google credentials: %w", err)
	}
	unlinked, err := s.events.UnlinkAll(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to unlink events: %w", err)
	}
	log.Infof("Google Calendar disconnected for user %d, %d events unlinked", userId, unlinked)
	return nil
}

// SetAutoSync registers or removes the push notification channel of the user's calendar.
func (s *ControlService) SetAutoSync(ctx context.Context, userId int, enabled bool) (AutoSyncResult, error) {
	if !s.tokens.Configured() {
		return AutoSyncResult{}, google.ErrNotConfigured
	}
	if !enabled {
		if err := s.stopChannels(ctx, userId); err != nil {
			return AutoSyncResult{}, err
		}
		return AutoSyncResult{Enabled: false}, nil
	}

	grant, err := s.tokens.GetValidAccessToken(ctx, userId)
	if err != nil {
		return AutoSyncResult{}, err
	}
	client, err := s.newClient(ctx, *grant)
	if err != nil {
		return AutoSyncResult{}, fmt.Errorf("failed to create calendar client: %w", err)
	}

	// one channel per user
	if err := s.stopChannelsWith(ctx, client, userId); err != nil {
		return AutoSyncResult{}, err
	}

	watch, err := client.WatchCalendar(ctx, s.webhookUrl, uuid.New().String())
	if err != nil {
		return AutoSyncResult{}, err
	}

	channel := WatchChannel{
		ChannelId:  watch.ChannelId,
		UserId:     userId,
		ResourceId: watch.ResourceId,
	}
	if !watch.Expiration.IsZero() {
		channel.Expiration = &watch.Expiration
	}
	if err := s.channels.StoreChannel(ctx, channel); err != nil {
		if stopErr := client.StopChannel(ctx, watch.ChannelId, watch.ResourceId); stopErr != nil {
			log.Warnf("failed to stop unrecorded channel %s: %v", watch.ChannelId, stopErr)
		}
		return AutoSyncResult{}, err
	}
	log.Infof("Auto-sync enabled for user %d on channel %s", userId, watch.ChannelId)
	return AutoSyncResult{Enabled: true, Expiration: channel.Expiration}, nil
}

// stopChannels stops the user's channels at Google when a grant is available and always
// forgets them locally.
func (s *ControlService) stopChannels(ctx context.Context, userId int) error {
	channels, err := s.channels.GetChannels(ctx, userId)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return nil
	}

	var client google.CalendarClient
	grant, err := s.tokens.GetValidAccessToken(ctx, userId)
	if err != nil {
		log.Warnf("cannot stop Google channels of user %d remotely: %v", userId, err)
	} else if client, err = s.newClient(ctx, *grant); err != nil {
		log.Warnf("cannot stop Google channels of user %d remotely: %v", userId, err)
		client = nil
	}
	return s.forgetChannels(ctx, client, channels)
}

func (s *ControlService) stopChannelsWith(ctx context.Context, client google.CalendarClient, userId int) error {
	channels, err := s.channels.GetChannels(ctx, userId)
	if err != nil {
		return err
	}
	return s.forgetChannels(ctx, client, channels)
}

func (s *ControlService) forgetChannels(ctx context.Context, client google.CalendarClient, channels []WatchChannel) error {
	for _, channel := range channels {
		if client != nil {
			if err := client.StopChannel(ctx, channel.ChannelId, channel.ResourceId); err != nil {
				log.Warnf("failed to stop Google channel %s: %v", channel.ChannelId, err)
			}
		}
		if err := s.channels.DeleteChannel(ctx, channel.ChannelId); err != nil {
			return err
		}
	}
	return nil
}

// HandleNotification processes a Google push notification. It returns true when a pull sync was
// scheduled. Handshakes and notifications for unknown channels are ignored.
func (s *ControlService) HandleNotification(ctx context.Context, channelId, resourceId, state string) (bool, error) {
	if state == resourceStateSync {
		log.Debugf("Channel %s handshake received", channelId)
		return false, nil
	}

	channel, err := s.channels.GetChannel(ctx, channelId)
	if err != nil {
		return false, err
	}
	if channel == nil || (resourceId != "" && channel.ResourceId != resourceId) {
		log.Debugf("Ignoring notification for unknown channel %s", channelId)
		return false, nil
	}

	s.bus.PublishAsync(event_bus.NewEvent(ctx, event_bus.GoogleCalendarChangedType, event_bus.GoogleCalendarChanged{
		UserId:    channel.UserId,
		ChannelId: channelId,
		State:     state,
	}))
	return true, nil
}
