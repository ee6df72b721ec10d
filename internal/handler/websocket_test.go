package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_chat/internal/domain"
	"campus_chat/internal/realtime"
)

type wsClient struct {
	conn   *websocket.Conn
	events chan realtime.Event
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	c := &wsClient{conn: conn, events: make(chan realtime.Event, 64)}
	go func() {
		defer close(c.events)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var e realtime.Event
			if json.Unmarshal(data, &e) == nil {
				c.events <- e
			}
		}
	}()
	t.Cleanup(func() { conn.Close() })
	return c
}

func (c *wsClient) send(t *testing.T, frame interface{}) {
	t.Helper()
	require.NoError(t, c.conn.WriteJSON(frame))
}

func (c *wsClient) next(t *testing.T) realtime.Event {
	t.Helper()
	select {
	case e, ok := <-c.events:
		require.True(t, ok, "connection closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return realtime.Event{}
}

func (c *wsClient) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case e, ok := <-c.events:
		if ok {
			t.Fatalf("unexpected event %q in room %q", e.Type, e.Room)
		}
	case <-time.After(d):
	}
}

func (c *wsClient) setup(t *testing.T, u testUser) {
	t.Helper()
	c.send(t, gin.H{"type": realtime.EventSetup, "user": gin.H{"id": u.ID}})
	e := c.next(t)
	require.Equal(t, realtime.EventConnected, e.Type)
	assert.Equal(t, realtime.UserRoom(u.ID), e.Room)
}

func messageID(t *testing.T, e realtime.Event) int64 {
	t.Helper()
	m, ok := e.Message.(map[string]interface{})
	require.True(t, ok, "event carries no message")
	id, ok := m["id"].(float64)
	require.True(t, ok)
	return int64(id)
}

func TestWebSocket_RealtimeFlow(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	alice := env.user(t, "Alice", domain.RoleStudent)
	bob := env.user(t, "Bob", domain.RoleStudent)
	carol := env.user(t, "Carol", domain.RoleStudent)

	w := env.do(t, http.MethodPost, "/api/v1/chats/direct", alice.Token, gin.H{"user_id": bob.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var chat domain.Chat
	decode(t, w, &chat)
	room := realtime.ChatRoom(chat.ID)

	aliceWS := dialWS(t, srv, alice.Token)
	bobWS := dialWS(t, srv, bob.Token)
	carolWS := dialWS(t, srv, carol.Token)

	aliceWS.setup(t, alice)
	bobWS.setup(t, bob)

	// setup чужим id отклоняется
	carolWS.send(t, gin.H{"type": realtime.EventSetup, "user": gin.H{"id": alice.ID}})
	e := carolWS.next(t)
	require.Equal(t, realtime.EventError, e.Type)
	assert.Equal(t, "forbidden", e.Code)
	carolWS.setup(t, carol)

	bobWS.send(t, gin.H{"type": realtime.EventJoinChat, "room": room})
	carolWS.send(t, gin.H{"type": realtime.EventJoinChat, "room": room})
	e = carolWS.next(t)
	require.Equal(t, realtime.EventError, e.Type)
	assert.Equal(t, "forbidden", e.Code)

	// три персональные комнаты и комната чата
	require.Eventually(t, func() bool { return env.registry.Stats().Rooms == 4 }, 2*time.Second, 10*time.Millisecond)

	w = env.do(t, http.MethodPost, "/api/v1/chats/"+chat.ID.String()+"/messages", alice.Token, gin.H{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	var sent domain.Message
	decode(t, w, &sent)

	e = bobWS.next(t)
	require.Equal(t, realtime.EventMessageReceived, e.Type)
	assert.Equal(t, room, e.Room)
	assert.Equal(t, sent.ID, messageID(t, e))

	// typing уходит всем в комнате, кроме автора
	aliceWS.send(t, gin.H{"type": realtime.EventJoinChat, "room": room})
	aliceWS.send(t, gin.H{"type": realtime.EventTyping, "room": room})
	e = bobWS.next(t)
	require.Equal(t, realtime.EventTyping, e.Type)
	assert.Equal(t, alice.ID.String(), e.UserID)

	bobWS.send(t, gin.H{"type": realtime.EventStopTyping, "room": room})
	e = aliceWS.next(t)
	require.Equal(t, realtime.EventStopTyping, e.Type)
	assert.Equal(t, bob.ID.String(), e.UserID)

	// пересылка своего сообщения доходит до остальных участников
	aliceWS.send(t, gin.H{"type": realtime.EventNewMessage, "message": gin.H{"id": sent.ID}})
	e = bobWS.next(t)
	require.Equal(t, realtime.EventMessageReceived, e.Type)
	assert.Equal(t, sent.ID, messageID(t, e))

	// чужое или невидимое сообщение не пересылается
	bobWS.send(t, gin.H{"type": realtime.EventNewMessage, "message": gin.H{"id": sent.ID}})
	carolWS.send(t, gin.H{"type": realtime.EventNewMessage, "message": gin.H{"id": sent.ID}})

	w = env.do(t, http.MethodPost, "/api/v1/direct/conversations/"+bob.ID.String()+"/messages", alice.Token, gin.H{"content": "psst"})
	require.Equal(t, http.StatusCreated, w.Code)
	e = bobWS.next(t)
	require.Equal(t, realtime.EventDirectMessageReceived, e.Type)
	assert.Equal(t, realtime.UserRoom(bob.ID), e.Room)

	bobWS.quiet(t, 200*time.Millisecond)
	aliceWS.quiet(t, 100*time.Millisecond)
	carolWS.quiet(t, 100*time.Millisecond)
}

func TestWebSocket_JoinBeforeSetupIgnored(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	alice := env.user(t, "Alice", domain.RoleStudent)
	bob := env.user(t, "Bob", domain.RoleStudent)

	w := env.do(t, http.MethodPost, "/api/v1/chats/direct", alice.Token, gin.H{"user_id": bob.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var chat domain.Chat
	decode(t, w, &chat)

	ws := dialWS(t, srv, alice.Token)
	ws.send(t, gin.H{"type": realtime.EventJoinChat, "room": chat.ID.String()})
	ws.setup(t, alice)

	// кадры обрабатываются по порядку: после connected join уже отброшен
	assert.Equal(t, 1, env.registry.Stats().Rooms)
}

func TestWebSocket_RejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_MalformedFramesKeepConnectionOpen(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	alice := env.user(t, "Alice", domain.RoleStudent)
	bob := env.user(t, "Bob", domain.RoleStudent)

	w := env.do(t, http.MethodPost, "/api/v1/chats/direct", alice.Token, gin.H{"user_id": bob.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var chat domain.Chat
	decode(t, w, &chat)

	ws := dialWS(t, srv, alice.Token)
	require.NoError(t, ws.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ws.setup(t, alice)

	ws.send(t, gin.H{"type": realtime.EventJoinChat, "room": "not-a-uuid"})
	ws.send(t, gin.H{"type": realtime.EventJoinChat})
	ws.send(t, gin.H{"type": realtime.EventTyping, "room": ""})
	ws.send(t, gin.H{"type": realtime.EventLeaveChat, "room": chat.ID.String()})
	ws.send(t, gin.H{"type": realtime.EventNewMessage})
	ws.send(t, gin.H{"type": realtime.EventNewMessage, "message": gin.H{}})
	ws.send(t, gin.H{"type": "unknown event"})
	ws.quiet(t, 100*time.Millisecond)

	// соединение живо: join и доставка работают как обычно
	ws.send(t, gin.H{"type": realtime.EventJoinChat, "room": chat.ID.String()})
	require.Eventually(t, func() bool { return env.registry.Stats().Rooms == 2 }, 2*time.Second, 10*time.Millisecond)

	w = env.do(t, http.MethodPost, "/api/v1/chats/"+chat.ID.String()+"/messages", bob.Token, gin.H{"content": "still there?"})
	require.Equal(t, http.StatusCreated, w.Code)
	var sent domain.Message
	decode(t, w, &sent)

	e := ws.next(t)
	require.Equal(t, realtime.EventMessageReceived, e.Type)
	assert.Equal(t, sent.ID, messageID(t, e))
	assert.Equal(t, 1, env.registry.Stats().Connections)
}
