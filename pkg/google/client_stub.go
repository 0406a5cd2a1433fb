package google

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CalendarClientStub is an in-memory Google Calendar used by service and engine tests.
type CalendarClientStub struct {
	mu       sync.Mutex
	events   map[string]RemoteEvent
	channels map[string]WatchChannel
	nextId   int

	// FailCreate and FailUpdate make calls for events with the given summary fail.
	FailCreate map[string]error
	FailUpdate map[string]error
	ListErr    error
	WatchErr   error
	StopErr    error

	CreateCalls int
	UpdateCalls int
	Stopped     []string
	Grants      []AccessGrant
}

func NewCalendarClientStub() *CalendarClientStub {
	return &CalendarClientStub{
		events:     make(map[string]RemoteEvent),
		channels:   make(map[string]WatchChannel),
		nextId:     1,
		FailCreate: make(map[string]error),
		FailUpdate: make(map[string]error),
	}
}

// Factory returns a ClientFactory handing out this stub and recording each grant.
func (s *CalendarClientStub) Factory() ClientFactory {
	return func(ctx context.Context, grant AccessGrant) (CalendarClient, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.Grants = append(s.Grants, grant)
		return s, nil
	}
}

// AddEvent puts an event on the remote calendar as if a user created it in Google.
func (s *CalendarClientStub) AddEvent(event RemoteEvent) RemoteEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Id == "" {
		event.Id = s.newId()
	}
	s.events[event.Id] = event
	return event
}

func (s *CalendarClientStub) Event(id string) (RemoteEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	return event, ok
}

func (s *CalendarClientStub) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *CalendarClientStub) newId() string {
	id := fmt.Sprintf("google-%d", s.nextId)
	s.nextId++
	return id
}

func (s *CalendarClientStub) CreateEvent(ctx context.Context, event RemoteEvent) (RemoteEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls++
	if err := s.FailCreate[event.Summary]; err != nil {
		return RemoteEvent{}, err
	}
	event.Id = s.newId()
	s.events[event.Id] = event
	return event, nil
}

func (s *CalendarClientStub) UpdateEvent(ctx context.Context, remoteId string, event RemoteEvent) (RemoteEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateCalls++
	if err := s.FailUpdate[event.Summary]; err != nil {
		return RemoteEvent{}, err
	}
	if _, ok := s.events[remoteId]; !ok {
		return RemoteEvent{}, fmt.Errorf("remote event %s not found", remoteId)
	}
	event.Id = remoteId
	s.events[remoteId] = event
	return event, nil
}

func (s *CalendarClientStub) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]RemoteEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	events := make([]RemoteEvent, 0, len(s.events))
	for _, event := range s.events {
		if event.End.Before(timeMin) || !event.Start.Before(timeMax) {
			continue
		}
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].Id < events[j].Id
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func (s *CalendarClientStub) WatchCalendar(ctx context.Context, webhookUrl, channelId string) (WatchChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WatchErr != nil {
		return WatchChannel{}, s.WatchErr
	}
	channel := WatchChannel{
		ChannelId:  channelId,
		ResourceId: "resource-" + channelId,
		Expiration: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.channels[channelId] = channel
	return channel, nil
}

func (s *CalendarClientStub) StopChannel(ctx context.Context, channelId, resourceId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StopErr != nil {
		return s.StopErr
	}
	delete(s.channels, channelId)
	s.Stopped = append(s.Stopped, channelId)
	return nil
}

func (s *CalendarClientStub) ActiveChannels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}
