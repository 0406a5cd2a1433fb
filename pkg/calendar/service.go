package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adflow/erp-calendar/pkg/user"
	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("invalid calendar event")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// checkProject rejects references to projects the user does not own.
func (s *Service) checkProject(ctx context.Context, userId int, event Event) error {
	if event.ProjectId == nil {
		return nil
	}
	owned, err := s.repo.ProjectOwned(ctx, userId, *event.ProjectId)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("%w: unknown project %d", ErrInvalidEvent, *event.ProjectId)
	}
	return nil
}

func validate(event Event) error {
	if strings.TrimSpace(event.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if event.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	if event.EndDate != nil && event.EndDate.Before(event.Date) {
		return fmt.Errorf("%w: end date before date", ErrInvalidEvent)
	}
	if event.Type != "" && !event.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.Type)
	}
	return nil
}

// AddEvent stores a new event created in the ERP. Sync linkage is never taken from the caller.
func (s *Service) AddEvent(ctx context.Context, event Event) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := validate(event); err != nil {
		return Event{}, err
	}
	if err := s.checkProject(ctx, userId, event); err != nil {
		return Event{}, err
	}

	event.Id = uuid.Nil
	event.GoogleEventId = nil
	event.SyncedAt = nil
	stored, err := s.repo.StoreEvent(ctx, userId, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}
	return s.repo.GetEvent(ctx, userId, stored.Id)
}

func (s *Service) GetEvent(ctx context.Context, eventId uuid.UUID) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetEvent(ctx, userId, eventId)
}

func (s *Service) GetEvents(ctx context.Context, from time.Time, to time.Time) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidEvent)
	}
	return s.repo.GetEvents(ctx, userId, from, to)
}

// ModifyEvent updates the business fields of an existing event and keeps its Google linkage.
func (s *Service) ModifyEvent(ctx context.Context, event Event) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := validate(event); err != nil {
		return Event{}, err
	}
	if err := s.checkProject(ctx, userId, event); err != nil {
		return Event{}, err
	}
	if event.Type == "" {
		event.Type = Custom
	}
	if err := s.repo.UpdateEvent(ctx, userId, event); err != nil {
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	return s.repo.GetEvent(ctx, userId, event.Id)
}

func (s *Service) DeleteEvent(ctx context.Context, eventId uuid.UUID) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.DeleteEvent(ctx, userId, eventId)
}
