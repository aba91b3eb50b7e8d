package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventhub/internal/logger"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "order_reservation:"

// Tracker holds a TTL key per pending order. When the key expires redis
// notifies the subscriber, which cancels the order and restores inventory.
type Tracker struct {
	Redis  *redis.Client
	Logger *logger.Logger
	TTL    time.Duration
}

func NewTracker(rdb *redis.Client, log *logger.Logger, ttl time.Duration) *Tracker {
	return &Tracker{Redis: rdb, Logger: log, TTL: ttl}
}

func (t *Tracker) Hold(ctx context.Context, orderID string) error {
	if err := t.Redis.Set(ctx, keyPrefix+orderID, "1", t.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set reservation key: %w", err)
	}
	return nil
}

// Release removes the hold after payment or cancellation so the expiry
// subscriber never fires for a settled order.
func (t *Tracker) Release(ctx context.Context, orderID string) {
	if err := t.Redis.Del(ctx, keyPrefix+orderID).Err(); err != nil {
		t.Logger.Warn("RESERVATION", fmt.Sprintf("Failed to release hold for order %s: %v", orderID, err))
	}
}

func (t *Tracker) Held(ctx context.Context, orderID string) (bool, error) {
	n, err := t.Redis.Exists(ctx, keyPrefix+orderID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reservation key: %w", err)
	}
	return n > 0, nil
}

// Subscribe listens on the keyspace expired-event channel and invokes
// onExpire for every reservation key that times out. Requires redis to
// run with notify-keyspace-events including "Ex".
func (t *Tracker) Subscribe(ctx context.Context, onExpire func(orderID string)) {
	pubsub := t.Redis.PSubscribe(ctx, "__keyevent@*__:expired")

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		t.Logger.Info("RESERVATION", "Listening for reservation expirations")

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !strings.HasPrefix(msg.Payload, keyPrefix) {
					continue
				}
				orderID := strings.TrimPrefix(msg.Payload, keyPrefix)
				t.Logger.Info("RESERVATION", fmt.Sprintf("Reservation expired for order %s", orderID))
				onExpire(orderID)
			}
		}
	}()
}
