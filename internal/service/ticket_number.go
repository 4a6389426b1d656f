package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// TicketNumberGenerator hands out human-readable ticket numbers.
type TicketNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// RedisTicketNumbers draws JB-00001 style numbers from a Redis counter. When
// Redis is unavailable it falls back to a random key so intake never stops.
type RedisTicketNumbers struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisTicketNumbers builds the generator. client may be nil.
func NewRedisTicketNumbers(client *redis.Client, key string, logger *zap.Logger) *RedisTicketNumbers {
	return &RedisTicketNumbers{client: client, key: key, logger: logger}
}

// Next implements TicketNumberGenerator.
func (g *RedisTicketNumbers) Next(ctx context.Context) (string, error) {
	if g.client == nil {
		return generateTicketKey(), nil
	}
	n, err := g.client.Incr(ctx, g.key).Result()
	if err != nil {
		g.logger.Warn("ticket sequence unavailable; using random number", zap.Error(err))
		return generateTicketKey(), nil
	}
	return formatTicketNumber(n), nil
}

// Seed raises the counter to floor so numbers already stored are never
// handed out again, for example after Redis lost its data.
func (g *RedisTicketNumbers) Seed(ctx context.Context, floor int64) error {
	if g.client == nil || floor <= 0 {
		return nil
	}
	current, err := g.client.Get(ctx, g.key).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if current >= floor {
		return nil
	}
	if err := g.client.Set(ctx, g.key, floor, 0).Err(); err != nil {
		return err
	}
	g.logger.Info("ticket sequence seeded", zap.Int64("from", current), zap.Int64("to", floor))
	return nil
}

func formatTicketNumber(n int64) string {
	return fmt.Sprintf("%s%05d", domain.TicketNumberPrefix, n)
}

// generateTicketKey always contains a letter so it never reads as a
// sequence number.
func generateTicketKey() string {
	return domain.TicketNumberPrefix + "R" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:7])
}
