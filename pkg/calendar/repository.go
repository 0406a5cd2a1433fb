package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrEventNotFound = errors.New("calendar event not found")

type Repository interface {
	StoreEvent(ctx context.Context, userId int, event Event) (Event, error)
	GetEvent(ctx context.Context, userId int, eventId uuid.UUID) (Event, error)
	// ProjectOwned reports whether projectId exists and belongs to the user.
	ProjectOwned(ctx context.Context, userId int, projectId int) (bool, error)
	GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error)
	FindByGoogleEventId(ctx context.Context, userId int, googleEventId string) (*Event, error)
	UpdateEvent(ctx context.Context, userId int, event Event) error
	ApplyRemoteChanges(ctx context.Context, userId int, eventId uuid.UUID, changes RemoteChanges, syncedAt time.Time) error
	LinkGoogleEvent(ctx context.Context, userId int, eventId uuid.UUID, googleEventId string, syncedAt time.Time) error
	TouchSyncedAt(ctx context.Context, userId int, eventId uuid.UUID, syncedAt time.Time) error
	CountLinked(ctx context.Context, userId int) (int, error)
	UnlinkAll(ctx context.Context, userId int) (int, error)
	DeleteEvent(ctx context.Context, userId int, eventId uuid.UUID) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectEvent = `SELECT e.id, e.user_id, e.title, e.event_date, e.end_date, e.all_day, e.event_type, e.memo,
				e.project_id, COALESCE(p.name, ''), e.google_event_id, e.synced_at
				FROM calendar_event e
				LEFT JOIN project p ON p.id = e.project_id AND p.user_id = e.user_id`

func scanEvent(row pgx.Row) (Event, error) {
	var event Event
	err := row.Scan(
		&event.Id,
		&event.UserId,
		&event.Title,
		&event.Date,
		&event.EndDate,
		&event.AllDay,
		&event.Type,
		&event.Memo,
		&event.ProjectId,
		&event.ProjectName,
		&event.GoogleEventId,
		&event.SyncedAt,
	)
	return event, err
}

func (r *RepositoryImpl) StoreEvent(ctx context.Context, userId int, event Event) (Event, error) {
	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	if event.Type == "" {
		event.Type = Custom
	}
	event.UserId = userId

	query := `INSERT INTO calendar_event (id, user_id, title, event_date, end_date, all_day, event_type, memo,
				project_id, google_event_id, synced_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		event.Id,
		userId,
		event.Title,
		event.Date,
		event.EndDate,
		event.AllDay,
		event.Type,
		event.Memo,
		event.ProjectId,
		event.GoogleEventId,
		event.SyncedAt,
	)
	if err != nil {
		err := fmt.Errorf("could not store calendar event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, userId int, eventId uuid.UUID) (Event, error) {
	event, err := scanEvent(r.db.QueryRow(ctx, selectEvent+` WHERE e.user_id = $1 AND e.id = $2`, userId, eventId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		return Event{}, fmt.Errorf("could not query calendar event: %w", err)
	}
	return event, nil
}

func (r *RepositoryImpl) ProjectOwned(ctx context.Context, userId int, projectId int) (bool, error) {
	var owned bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM project WHERE id = $1 AND user_id = $2)`, projectId, userId).
		Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("could not query project: %w", err)
	}
	return owned, nil
}

// GetEvents returns the user's events starting in the half-open range [from, to), ordered by date.
func (r *RepositoryImpl) GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error) {
	query := selectEvent + ` WHERE e.user_id = $1 AND e.event_date >= $2 AND e.event_date < $3 ORDER BY e.event_date, e.id`

	rows, err := r.db.Query(ctx, query, userId, from, to)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 16)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return events, nil
}

// FindByGoogleEventId returns nil when no local event of the user is linked to googleEventId.
func (r *RepositoryImpl) FindByGoogleEventId(ctx context.Context, userId int, googleEventId string) (*Event, error) {
	event, err := scanEvent(r.db.QueryRow(ctx, selectEvent+` WHERE e.user_id = $1 AND e.google_event_id = $2`, userId, googleEventId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("could not query calendar event by Google id: %w", err)
	}
	return &event, nil
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, userId int, event Event) error {
	query := `UPDATE calendar_event SET title = $1, event_date = $2, end_date = $3, all_day = $4, event_type = $5,
				memo = $6, project_id = $7 WHERE id = $8 AND user_id = $9`
	return r.execOne(ctx, query, event.Title, event.Date, event.EndDate, event.AllDay, event.Type, event.Memo,
		event.ProjectId, event.Id, userId)
}

func (r *RepositoryImpl) ApplyRemoteChanges(ctx context.Context, userId int, eventId uuid.UUID, changes RemoteChanges, syncedAt time.Time) error {
	query := `UPDATE calendar_event SET title = $1, event_date = $2, end_date = $3, all_day = $4, memo = $5,
				synced_at = $6 WHERE id = $7 AND user_id = $8`
	return r.execOne(ctx, query, changes.Title, changes.Date, changes.EndDate, changes.AllDay, changes.Memo, syncedAt,
		eventId, userId)
}

func (r *RepositoryImpl) LinkGoogleEvent(ctx context.Context, userId int, eventId uuid.UUID, googleEventId string, syncedAt time.Time) error {
	query := `UPDATE calendar_event SET google_event_id = $1, synced_at = $2 WHERE id = $3 AND user_id = $4`
	return r.execOne(ctx, query, googleEventId, syncedAt, eventId, userId)
}

func (r *RepositoryImpl) TouchSyncedAt(ctx context.Context, userId int, eventId uuid.UUID, syncedAt time.Time) error {
	return r.execOne(ctx, `UPDATE calendar_event SET synced_at = $1 WHERE id = $2 AND user_id = $3`, syncedAt, eventId, userId)
}

func (r *RepositoryImpl) CountLinked(ctx context.Context, userId int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM calendar_event WHERE user_id = $1 AND google_event_id IS NOT NULL`, userId).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("could not count linked events: %w", err)
	}
	return count, nil
}

func (r *RepositoryImpl) UnlinkAll(ctx context.Context, userId int) (int, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE calendar_event SET google_event_id = NULL, synced_at = NULL
				WHERE user_id = $1 AND (google_event_id IS NOT NULL OR synced_at IS NOT NULL)`, userId)
	if err != nil {
		return 0, fmt.Errorf("could not unlink events: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, userId int, eventId uuid.UUID) error {
	return r.execOne(ctx, `DELETE FROM calendar_event WHERE id = $1 AND user_id = $2`, eventId, userId)
}

// execOne runs a statement that must touch exactly one of the user's events.
func (r *RepositoryImpl) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}
