package realtime

import (
	"context"
	"fmt"

	"campus_chat/pkg/logger"
)

// Dispatcher публикует события в комнаты. Отсутствие подписчиков ошибкой не считается.
type Dispatcher interface {
	Publish(ctx context.Context, room string, event Event) error
	PublishExcept(ctx context.Context, room string, event Event, excludeConnID string) error
}

// LocalDispatcher доставляет события только соединениям этого процесса
type LocalDispatcher struct {
	registry *Registry
	log      logger.Logger
}

func NewLocalDispatcher(registry *Registry, log logger.Logger) *LocalDispatcher {
	return &LocalDispatcher{registry: registry, log: log}
}

func (d *LocalDispatcher) Publish(ctx context.Context, room string, event Event) error {
	return d.PublishExcept(ctx, room, event, "")
}

func (d *LocalDispatcher) PublishExcept(ctx context.Context, room string, event Event, excludeConnID string) error {
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	delivered := d.registry.Broadcast(room, payload, excludeConnID)
	d.log.Debug("Event published", "type", event.Type, "room", room, "delivered", delivered)
	return nil
}
