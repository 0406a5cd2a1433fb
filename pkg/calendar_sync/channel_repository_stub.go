package calendar_sync

import (
	"context"
	"sort"
	"sync"
	"time"
)

type ChannelRepositoryStub struct {
	mu       sync.RWMutex
	channels map[string]WatchChannel
}

func NewChannelRepositoryStub() *ChannelRepositoryStub {
	return &ChannelRepositoryStub{channels: make(map[string]WatchChannel)}
}

func (r *ChannelRepositoryStub) StoreChannel(ctx context.Context, channel WatchChannel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = time.Now()
	}
	r.channels[channel.ChannelId] = channel
	return nil
}

func (r *ChannelRepositoryStub) GetChannel(ctx context.Context, channelId string) (*WatchChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	channel, ok := r.channels[channelId]
	if !ok {
		return nil, nil
	}
	return &channel, nil
}

func (r *ChannelRepositoryStub) GetChannels(ctx context.Context, userId int) ([]WatchChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	channels := make([]WatchChannel, 0, len(r.channels))
	for _, channel := range r.channels {
		if channel.UserId == userId {
			channels = append(channels, channel)
		}
	}
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].CreatedAt.Before(channels[j].CreatedAt)
	})
	return channels, nil
}

func (r *ChannelRepositoryStub) DeleteChannel(ctx context.Context, channelId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, channelId)
	return nil
}
