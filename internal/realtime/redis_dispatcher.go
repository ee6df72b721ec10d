package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"campus_chat/pkg/logger"
)

type envelope struct {
	Room    string          `json:"room"`
	Exclude string          `json:"exclude,omitempty"`
	Event   json.RawMessage `json:"event"`
}

// RedisDispatcher рассылает события через Redis pub/sub, чтобы их получили
// соединения всех экземпляров сервиса. Каждый экземпляр доставляет envelope
// своим подписчикам из Run.
type RedisDispatcher struct {
	client   *redis.Client
	channel  string
	registry *Registry
	log      logger.Logger
}

func NewRedisDispatcher(client *redis.Client, channel string, registry *Registry, log logger.Logger) *RedisDispatcher {
	return &RedisDispatcher{client: client, channel: channel, registry: registry, log: log}
}

func (d *RedisDispatcher) Publish(ctx context.Context, room string, event Event) error {
	return d.PublishExcept(ctx, room, event, "")
}

func (d *RedisDispatcher) PublishExcept(ctx context.Context, room string, event Event, excludeConnID string) error {
	raw, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	payload, err := json.Marshal(envelope{Room: room, Exclude: excludeConnID, Event: raw})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := d.client.Publish(ctx, d.channel, payload).Err(); err != nil {
		d.log.Error("Failed to publish event", "error", err, "type", event.Type, "room", room)
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Run читает канал и доставляет события локальным подписчикам до отмены ctx
func (d *RedisDispatcher) Run(ctx context.Context) error {
	sub := d.client.Subscribe(ctx, d.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", d.channel, err)
	}
	d.log.Info("Realtime fan-out subscribed", "channel", d.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			d.deliver(msg.Payload)
		}
	}
}

func (d *RedisDispatcher) deliver(payload string) int {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.Room == "" {
		d.log.Warn("Dropped malformed fan-out envelope", "error", err)
		return 0
	}
	return d.registry.Broadcast(env.Room, env.Event, env.Exclude)
}
