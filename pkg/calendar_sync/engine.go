package calendar_sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adflow/erp-calendar/internal/utils"
	"github.com/adflow/erp-calendar/pkg/calendar"
	"github.com/adflow/erp-calendar/pkg/google"
	log "github.com/sirupsen/logrus"
)

type Direction string

const (
	Push Direction = "push"
	Pull Direction = "pull"
	Full Direction = "full"
)

var ErrInvalidDirection = errors.New("invalid sync direction")

func (d Direction) Valid() bool {
	return d == Push || d == Pull || d == Full
}

// Result counts what a sync run did. Errors holds one message per event that failed.
type Result struct {
	Pushed  int
	Pulled  int
	Updated int
	Errors  []string
}

func (r *Result) addError(phase, name string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s %q: %v", phase, name, err))
}

// TokenProvider hands out valid Google access grants for a user.
type TokenProvider interface {
	Configured() bool
	GetValidAccessToken(ctx context.Context, userId int) (*google.AccessGrant, error)
}

type Engine struct {
	tokens    TokenProvider
	newClient google.ClientFactory
	events    calendar.Repository
	clock     utils.Clock

	mu        sync.Mutex
	userLocks map[int]*sync.Mutex
}

func NewEngine(tokens TokenProvider, newClient google.ClientFactory, events calendar.Repository, clock utils.Clock) *Engine {
	return &Engine{
		tokens:    tokens,
		newClient: newClient,
		events:    events,
		clock:     clock,
		userLocks: make(map[int]*sync.Mutex),
	}
}

// lock serialises runs for one user. Different users sync independently.
func (e *Engine) lock(userId int) func() {
	e.mu.Lock()
	l, ok := e.userLocks[userId]
	if !ok {
		l = &sync.Mutex{}
		e.userLocks[userId] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// SyncWindow returns [first day of previous month, first day of the month after next) around now.
func SyncWindow(now time.Time) (time.Time, time.Time) {
	start := utils.StartOfMonth(now)
	return start.AddDate(0, -1, 0), start.AddDate(0, 2, 0)
}

// Sync reconciles the user's local events with their Google Calendar. Token problems, an invalid
// direction or a failed remote listing fail the whole run; single event failures only end up in
// Result.Errors. For Full, push always runs before pull.
func (e *Engine) Sync(ctx context.Context, userId int, direction Direction) (Result, error) {
	result := Result{Errors: []string{}}
	if !direction.Valid() {
		return result, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	unlock := e.lock(userId)
	defer unlock()

	grant, err := e.tokens.GetValidAccessToken(ctx, userId)
	if err != nil {
		return result, err
	}
	client, err := e.newClient(ctx, *grant)
	if err != nil {
		return result, fmt.Errorf("failed to create calendar client: %w", err)
	}

	from, to := SyncWindow(e.clock.Now())
	logger := log.WithFields(log.Fields{
		"userId":    userId,
		"direction": direction,
		"from":      from.Format(time.DateOnly),
		"to":        to.Format(time.DateOnly),
	})
	logger.Debug("Starting calendar sync")

	if direction == Push || direction == Full {
		if err := e.push(ctx, client, userId, from, to, &result); err != nil {
			logger.Errorf("Calendar push failed: %v", err)
			return result, err
		}
	}
	if direction == Pull || direction == Full {
		if err := e.pull(ctx, client, userId, from, to, &result); err != nil {
			logger.Errorf("Calendar pull failed: %v", err)
			return result, err
		}
	}

	logger.WithFields(log.Fields{
		"pushed":  result.Pushed,
		"pulled":  result.Pulled,
		"updated": result.Updated,
		"errors":  len(result.Errors),
	}).Info("Calendar sync finished")
	return result, nil
}

func (e *Engine) push(ctx context.Context, client google.CalendarClient, userId int, from, to time.Time, result *Result) error {
	events, err := e.events.GetEvents(ctx, userId, from, to)
	if err != nil {
		return fmt.Errorf("failed to load local events: %w", err)
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		remote := google.LocalToRemote(event)

		if event.Linked() {
			if _, err := client.UpdateEvent(ctx, *event.GoogleEventId, remote); err != nil {
				result.addError("push", event.Title, err)
				continue
			}
			if err := e.events.TouchSyncedAt(ctx, userId, event.Id, e.clock.Now()); err != nil {
				result.addError("push", event.Title, err)
				continue
			}
			result.Updated++
			continue
		}

		created, err := client.CreateEvent(ctx, remote)
		if err != nil {
			result.addError("push", event.Title, err)
			continue
		}
		if err := e.events.LinkGoogleEvent(ctx, userId, event.Id, created.Id, e.clock.Now()); err != nil {
			log.Warnf("Google event %s was created but could not be linked to %s: %v", created.Id, event.Id, err)
			result.addError("push", event.Title, err)
			continue
		}
		result.Pushed++
	}
	return nil
}

func (e *Engine) pull(ctx context.Context, client google.CalendarClient, userId int, from, to time.Time, result *Result) error {
	remotes, err := client.ListEvents(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list Google events: %w", err)
	}

	for _, remote := range remotes {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Google also lists events overlapping the window start
		if remote.Start.Before(from) || google.IsErpAuthored(remote) {
			continue
		}

		existing, err := e.events.FindByGoogleEventId(ctx, userId, remote.Id)
		if err != nil {
			result.addError("pull", remote.Summary, err)
			continue
		}

		if existing != nil {
			err := e.events.ApplyRemoteChanges(ctx, userId, existing.Id, google.RemoteChanges(remote), e.clock.Now())
			if err != nil {
				result.addError("pull", remote.Summary, err)
				continue
			}
			result.Updated++
			continue
		}

		local := google.RemoteToLocal(remote)
		syncedAt := e.clock.Now()
		local.SyncedAt = &syncedAt
		if _, err := e.events.StoreEvent(ctx, userId, local); err != nil {
			result.addError("pull", remote.Summary, err)
			continue
		}
		result.Pulled++
	}
	return nil
}
