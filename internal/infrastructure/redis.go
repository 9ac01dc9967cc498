package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const webhookKeyPrefix = "checkout:webhook:"

// RedisDeduplicator помнит идентификаторы уже принятых вебхуков.
// Провайдер доставляет события хотя бы один раз, повтор отбрасывается.
type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduplicator(addr string, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// MarkSeen возвращает true, если событие встретилось впервые
func (d *RedisDeduplicator) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	ctx, span := tracing.StartInfrastructure(ctx, "MarkWebhookSeen", tracing.SubLayerCache,
		trace.WithAttributes(attribute.String("webhook.event_id", eventID)))
	defer span.End()

	first, err := d.client.SetNX(ctx, webhookKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("redis setnx %s: %w", eventID, err)
	}
	span.SetAttributes(attribute.Bool("webhook.duplicate", !first))
	return first, nil
}

// Forget снимает отметку, чтобы повторная доставка события была обработана
func (d *RedisDeduplicator) Forget(ctx context.Context, eventID string) error {
	return tracing.Run(ctx, "ForgetWebhook", tracing.LayerInfrastructure, tracing.SubLayerCache, func(ctx context.Context) error {
		if err := d.client.Del(ctx, webhookKeyPrefix+eventID).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", eventID, err)
		}
		return nil
	}, attribute.String("webhook.event_id", eventID))
}

func (d *RedisDeduplicator) Close() error {
	return d.client.Close()
}
