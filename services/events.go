package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"occupancy-backend/models"
	"occupancy-backend/utils"
)

const publishTimeout = 2 * time.Second

// Publisher fans committed occupancy events out to listeners (dashboards
// refresh on them instead of polling).
type Publisher interface {
	Publish(ctx context.Context, events []models.OccupancyEvent) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, []models.OccupancyEvent) error { return nil }

// RedisPublisher publishes each event as JSON on a redis pub/sub channel.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{Client: client, Channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, events []models.OccupancyEvent) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s/%s: %w", ev.EntityType, ev.EntityID, err)
		}
		if err := p.Client.Publish(ctx, p.Channel, payload).Err(); err != nil {
			return fmt.Errorf("publish to %s: %w", p.Channel, err)
		}
	}
	return nil
}

// publishEvents runs after commit. The change is already durable, so a
// publish failure is only logged.
func publishEvents(ctx context.Context, pub Publisher, events []models.OccupancyEvent) {
	if pub == nil || len(events) == 0 {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := pub.Publish(pctx, events); err != nil {
		utils.Logger.WithFields(logrus.Fields{
			"events": len(events),
			"error":  err.Error(),
		}).Warn("failed to publish occupancy events")
	}
}
