package calendar_sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// WatchChannel is a Google push notification channel registered for a user.
type WatchChannel struct {
	ChannelId  string
	UserId     int
	ResourceId string
	Expiration *time.Time
	CreatedAt  time.Time
}

type ChannelRepository interface {
	StoreChannel(ctx context.Context, channel WatchChannel) error
	// GetChannel returns nil when the channel is unknown.
	GetChannel(ctx context.Context, channelId string) (*WatchChannel, error)
	GetChannels(ctx context.Context, userId int) ([]WatchChannel, error)
	DeleteChannel(ctx context.Context, channelId string) error
}

type ChannelRepositoryImpl struct {
	db *pgxpool.Pool
}

func NewChannelRepository(db *pgxpool.Pool) *ChannelRepositoryImpl {
	return &ChannelRepositoryImpl{db: db}
}

func (r *ChannelRepositoryImpl) StoreChannel(ctx context.Context, channel WatchChannel) error {
	query := `INSERT INTO google_watch_channel (channel_id, user_id, resource_id, expiration) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, query, channel.ChannelId, channel.UserId, channel.ResourceId, channel.Expiration)
	if err != nil {
		err := fmt.Errorf("could not store watch channel: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *ChannelRepositoryImpl) GetChannel(ctx context.Context, channelId string) (*WatchChannel, error) {
	query := `SELECT channel_id, user_id, resource_id, expiration, created_at FROM google_watch_channel WHERE channel_id = $1`
	var channel WatchChannel
	err := r.db.QueryRow(ctx, query, channelId).
		Scan(&channel.ChannelId, &channel.UserId, &channel.ResourceId, &channel.Expiration, &channel.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("could not query watch channel: %w", err)
	}
	return &channel, nil
}

func (r *ChannelRepositoryImpl) GetChannels(ctx context.Context, userId int) ([]WatchChannel, error) {
	query := `SELECT channel_id, user_id, resource_id, expiration, created_at FROM google_watch_channel
				WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, userId)
	if err != nil {
		return nil, fmt.Errorf("could not query watch channels: %w", err)
	}
	defer rows.Close()

	channels := make([]WatchChannel, 0, 2)
	for rows.Next() {
		var channel WatchChannel
		if err := rows.Scan(&channel.ChannelId, &channel.UserId, &channel.ResourceId, &channel.Expiration, &channel.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func (r *ChannelRepositoryImpl) DeleteChannel(ctx context.Context, channelId string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM google_watch_channel WHERE channel_id = $1`, channelId)
	if err != nil {
		return fmt.Errorf("could not delete watch channel: %w", err)
	}
	return nil
}
