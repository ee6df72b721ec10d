package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"campus_chat/internal/config"
	"campus_chat/internal/domain"
	"campus_chat/internal/realtime"
	"campus_chat/internal/repository/memory"
	"campus_chat/pkg/logger"
)

type published struct {
	room  string
	event realtime.Event
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []published
}

func (d *recordingDispatcher) Publish(ctx context.Context, room string, event realtime.Event) error {
	return d.PublishExcept(ctx, room, event, "")
}

func (d *recordingDispatcher) PublishExcept(ctx context.Context, room string, event realtime.Event, excludeConnID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, published{room: room, event: event})
	return nil
}

func (d *recordingDispatcher) all() []published {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]published(nil), d.events...)
}

type fixture struct {
	store      *memory.Store
	services   *Services
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	// сообщения всегда новее чатов, созданных в тесте, и строго упорядочены между собой
	var (
		clockMu sync.Mutex
		tick    = time.Now().UTC().Add(time.Hour)
	)
	store.SetClock(func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick = tick.Add(time.Millisecond)
		return tick
	})
	dispatcher := &recordingDispatcher{}
	cfg := &config.Config{Chat: config.ChatConfig{MaxMessageLength: 100}}

	return &fixture{
		store:      store,
		services:   NewServices(memory.NewRepositories(store), dispatcher, cfg, logger.Nop()),
		dispatcher: dispatcher,
	}
}

func (f *fixture) user(name, role string) uuid.UUID {
	id := uuid.New()
	f.store.UpsertUser(domain.UserProfile{ID: id, DisplayName: name, Role: role})
	return id
}

func identity(id uuid.UUID, role string) domain.Identity {
	return domain.Identity{UserID: id, Role: role}
}
