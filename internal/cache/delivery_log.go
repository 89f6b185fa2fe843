// Package cache records delivered messages in Redis. A successfully
// delivered message has no row left in the queue, so this is the only
// trace of it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

// KeyPrefix namespaces every delivery log key
const KeyPrefix = "queue:delivered:"

// DeliveryLog stores the outcome of fully delivered messages
type DeliveryLog interface {
	StoreDelivered(ctx context.Context, id uint, channelType models.ChannelType, sent int, deliveredAt time.Time) error
	Delivered(ctx context.Context, id uint) (*Delivery, error)
}

// Delivery is the value kept for a delivered message
type Delivery struct {
	Type        models.ChannelType `json:"type"`
	Sent        int                `json:"sent"`
	DeliveredAt time.Time          `json:"deliveredAt"`
}

// RedisDeliveryLog keeps deliveries as JSON strings with a TTL
type RedisDeliveryLog struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDeliveryLog creates a delivery log on rdb; a ttl of zero keeps entries forever
func NewRedisDeliveryLog(rdb *redis.Client, ttl time.Duration) *RedisDeliveryLog {
	return &RedisDeliveryLog{rdb: rdb, ttl: ttl}
}

// NewClient creates a Redis client from cfg and checks the connection
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Key returns the delivery log key of message id
func Key(id uint) string {
	return fmt.Sprintf("%s%d", KeyPrefix, id)
}

// StoreDelivered writes the delivery of message id, overwriting an earlier entry
func (l *RedisDeliveryLog) StoreDelivered(ctx context.Context, id uint, channelType models.ChannelType, sent int, deliveredAt time.Time) error {
	b, err := json.Marshal(Delivery{
		Type:        channelType,
		Sent:        sent,
		DeliveredAt: deliveredAt.UTC(),
	})
	if err != nil {
		return err
	}

	return l.rdb.Set(ctx, Key(id), b, l.ttl).Err()
}

// Delivered returns the logged delivery of message id
func (l *RedisDeliveryLog) Delivered(ctx context.Context, id uint) (*Delivery, error) {
	raw, err := l.rdb.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery log: %w", err)
	}

	var d Delivery
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode delivery log: %w", err)
	}
	return &d, nil
}
