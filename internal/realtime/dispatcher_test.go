package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_chat/pkg/logger"
)

func TestLocalDispatcher_PublishExcept(t *testing.T) {
	r := NewRegistry(logger.Nop())
	d := NewLocalDispatcher(r, logger.Nop())
	origin, peer := newFakeSubscriber(), newFakeSubscriber()
	r.Attach(origin)
	r.Attach(peer)
	r.Join(origin.ID(), "chat")
	r.Join(peer.ID(), "chat")

	user := uuid.NewString()
	require.NoError(t, d.PublishExcept(context.Background(), "chat", Event{Type: EventTyping, Room: "chat", UserID: user}, origin.ID()))

	assert.Empty(t, origin.events(t))
	events := peer.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventTyping, events[0].Type)
	assert.Equal(t, user, events[0].UserID)
}

func TestLocalDispatcher_NoSubscribersIsNotAnError(t *testing.T) {
	d := NewLocalDispatcher(NewRegistry(logger.Nop()), logger.Nop())
	assert.NoError(t, d.Publish(context.Background(), "nobody", Event{Type: EventMessageReceived}))
}

func TestRedisDispatcher_DeliverEnvelope(t *testing.T) {
	r := NewRegistry(logger.Nop())
	d := NewRedisDispatcher(nil, "chat:events", r, logger.Nop())
	origin, peer := newFakeSubscriber(), newFakeSubscriber()
	r.Attach(origin)
	r.Attach(peer)
	r.Join(origin.ID(), "chat")
	r.Join(peer.ID(), "chat")

	raw, err := Event{Type: EventStopTyping, Room: "chat"}.Encode()
	require.NoError(t, err)
	payload, err := json.Marshal(envelope{Room: "chat", Exclude: origin.ID(), Event: raw})
	require.NoError(t, err)

	assert.Equal(t, 1, d.deliver(string(payload)))
	require.Len(t, peer.events(t), 1)
	assert.Equal(t, EventStopTyping, peer.events(t)[0].Type)

	assert.Equal(t, 0, d.deliver("not json"))
	assert.Equal(t, 0, d.deliver(`{"event":{}}`))
}

func TestUserRoomAndChatRoom(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	assert.Equal(t, "user:11111111-1111-1111-1111-111111111111", UserRoom(id))
	assert.Equal(t, id.String(), ChatRoom(id))
}
