package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type stubProject struct {
	userId int
	name   string
}

type RepositoryStub struct {
	mu       sync.RWMutex
	items    map[uuid.UUID]Event
	projects map[int]stubProject
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		items:    make(map[uuid.UUID]Event),
		projects: make(map[int]stubProject),
	}
}

// AddProject registers a project owned by userId. Events of that user referencing it get its
// name filled in.
func (r *RepositoryStub) AddProject(userId, projectId int, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[projectId] = stubProject{userId: userId, name: name}
}

// withProject mirrors the user scoped project join.
func (r *RepositoryStub) withProject(event Event) Event {
	event.ProjectName = ""
	if event.ProjectId != nil {
		if p, ok := r.projects[*event.ProjectId]; ok && p.userId == event.UserId {
			event.ProjectName = p.name
		}
	}
	return event
}

func (r *RepositoryStub) ProjectOwned(ctx context.Context, userId int, projectId int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[projectId]
	return ok && p.userId == userId, nil
}

// linkTaken mirrors the unique (user_id, google_event_id) index.
func (r *RepositoryStub) linkTaken(userId int, googleEventId string, except uuid.UUID) bool {
	for id, item := range r.items {
		if id != except && item.UserId == userId && item.GoogleEventId != nil && *item.GoogleEventId == googleEventId {
			return true
		}
	}
	return false
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, userId int, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	if event.Type == "" {
		event.Type = Custom
	}
	if event.GoogleEventId != nil && r.linkTaken(userId, *event.GoogleEventId, event.Id) {
		return Event{}, fmt.Errorf("google event %s already linked", *event.GoogleEventId)
	}
	event.UserId = userId
	event = r.withProject(event)
	r.items[event.Id] = event
	return event, nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, userId int, eventId uuid.UUID) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[eventId]
	if !ok || item.UserId != userId {
		return Event{}, ErrEventNotFound
	}
	return item, nil
}

func (r *RepositoryStub) GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]Event, 0, len(r.items))
	for _, item := range r.items {
		if item.UserId != userId {
			continue
		}
		if !item.Date.Before(from) && item.Date.Before(to) {
			events = append(events, item)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].Id.String() < events[j].Id.String()
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (r *RepositoryStub) FindByGoogleEventId(ctx context.Context, userId int, googleEventId string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.UserId == userId && item.GoogleEventId != nil && *item.GoogleEventId == googleEventId {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (r *RepositoryStub) update(userId int, eventId uuid.UUID, fn func(item *Event) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[eventId]
	if !ok || item.UserId != userId {
		return ErrEventNotFound
	}
	if err := fn(&item); err != nil {
		return err
	}
	r.items[eventId] = item
	return nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, userId int, event Event) error {
	return r.update(userId, event.Id, func(item *Event) error {
		item.Title = event.Title
		item.Date = event.Date
		item.EndDate = event.EndDate
		item.AllDay = event.AllDay
		item.Type = event.Type
		item.Memo = event.Memo
		item.ProjectId = event.ProjectId
		*item = r.withProject(*item)
		return nil
	})
}

func (r *RepositoryStub) ApplyRemoteChanges(ctx context.Context, userId int, eventId uuid.UUID, changes RemoteChanges, syncedAt time.Time) error {
	return r.update(userId, eventId, func(item *Event) error {
		item.Title = changes.Title
		item.Date = changes.Date
		item.EndDate = changes.EndDate
		item.AllDay = changes.AllDay
		item.Memo = changes.Memo
		item.SyncedAt = &syncedAt
		return nil
	})
}

func (r *RepositoryStub) LinkGoogleEvent(ctx context.Context, userId int, eventId uuid.UUID, googleEventId string, syncedAt time.Time) error {
	return r.update(userId, eventId, func(item *Event) error {
		if r.linkTaken(userId, googleEventId, eventId) {
			return fmt.Errorf("google event %s already linked", googleEventId)
		}
		item.GoogleEventId = &googleEventId
		item.SyncedAt = &syncedAt
		return nil
	})
}

func (r *RepositoryStub) TouchSyncedAt(ctx context.Context, userId int, eventId uuid.UUID, syncedAt time.Time) error {
	return r.update(userId, eventId, func(item *Event) error {
		item.SyncedAt = &syncedAt
		return nil
	})
}

func (r *RepositoryStub) CountLinked(ctx context.Context, userId int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, item := range r.items {
		if item.UserId == userId && item.GoogleEventId != nil {
			count++
		}
	}
	return count, nil
}

func (r *RepositoryStub) UnlinkAll(ctx context.Context, userId int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for id, item := range r.items {
		if item.UserId != userId || (item.GoogleEventId == nil && item.SyncedAt == nil) {
			continue
		}
		item.GoogleEventId = nil
		item.SyncedAt = nil
		r.items[id] = item
		count++
	}
	return count, nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, userId int, eventId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[eventId]
	if !ok || item.UserId != userId {
		return ErrEventNotFound
	}
	delete(r.items, eventId)
	return nil
}
