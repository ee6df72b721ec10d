package realtime

import (
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"campus_chat/pkg/logger"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrIdentityMismatch  = errors.New("connection is bound to another user")
)

const publishStripes = 64

type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
	StateIdentified
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	}
	return "disconnected"
}

type Stats struct {
	Connections int `json:"connections"`
	Identified  int `json:"identified"`
	Rooms       int `json:"rooms"`
}

type entry struct {
	sub        Subscriber
	userID     uuid.UUID
	identified bool
	rooms      map[string]struct{}
}

// Registry хранит живые соединения и членство в комнатах.
// Комнаты - транспортные подписки, они не связаны с участниками чата в БД.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	rooms map[string]map[string]Subscriber

	// публикации в одну комнату сериализуются, чтобы все подписчики видели один порядок;
	// комнаты распределены по полосам, разные полосы не ждут друг друга
	publishMu [publishStripes]sync.Mutex

	log logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		conns: make(map[string]*entry),
		rooms: make(map[string]map[string]Subscriber),
		log:   log,
	}
}

// Attach регистрирует соединение в состоянии Connected
func (r *Registry) Attach(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[sub.ID()]; ok {
		return
	}
	r.conns[sub.ID()] = &entry{sub: sub, rooms: make(map[string]struct{})}
}

// Detach убирает соединение из всех комнат. Повторный вызов безопасен.
func (r *Registry) Detach(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return
	}
	for room := range e.rooms {
		r.leaveLocked(room, connID)
	}
	delete(r.conns, connID)
}

// Identify привязывает соединение к пользователю и его персональной комнате.
// Повторный setup тем же пользователем ничего не меняет.
func (r *Registry) Identify(connID string, userID uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return "", ErrUnknownConnection
	}
	if e.identified && e.userID != userID {
		return "", ErrIdentityMismatch
	}

	room := UserRoom(userID)
	e.userID = userID
	e.identified = true
	r.joinLocked(room, e)
	return room, nil
}

// Join подписывает соединение на комнату; false, если соединение неизвестно
func (r *Registry) Join(connID, roomID string) bool {
	if roomID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return false
	}
	r.joinLocked(roomID, e)
	return true
}

// Leave отписывает соединение; false, если подписки не было
func (r *Registry) Leave(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := e.rooms[roomID]; !joined {
		return false
	}
	r.leaveLocked(roomID, connID)
	return true
}

func (r *Registry) IsMember(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, joined := e.rooms[roomID]
	return joined
}

func (r *Registry) State(connID string) ConnState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	switch {
	case !ok:
		return StateDisconnected
	case e.identified:
		return StateIdentified
	default:
		return StateConnected
	}
}

// Rooms возвращает комнаты соединения
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.rooms))
	for room := range e.rooms {
		out = append(out, room)
	}
	return out
}

// Broadcast отправляет payload каждому подписчику комнаты, кроме excludeConnID.
// Возвращает число подписчиков, принявших кадр; пустая комната не ошибка.
func (r *Registry) Broadcast(roomID string, payload []byte, excludeConnID string) int {
	mu := &r.publishMu[xxhash.Sum64String(roomID)%publishStripes]
	mu.Lock()
	defer mu.Unlock()

	r.mu.RLock()
	room := r.rooms[roomID]
	targets := make([]Subscriber, 0, len(room))
	for id, sub := range room {
		if id == excludeConnID {
			continue
		}
		targets = append(targets, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if err := sub.Send(payload); err != nil {
			r.log.Debug("Dropped event for subscriber", "conn_id", sub.ID(), "room", roomID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Connections: len(r.conns), Rooms: len(r.rooms)}
	for _, e := range r.conns {
		if e.identified {
			s.Identified++
		}
	}
	return s
}

// Close закрывает все соединения и очищает реестр
func (r *Registry) Close() {
	r.mu.Lock()
	subs := make([]Subscriber, 0, len(r.conns))
	for _, e := range r.conns {
		subs = append(subs, e.sub)
	}
	r.conns = make(map[string]*entry)
	r.rooms = make(map[string]map[string]Subscriber)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

func (r *Registry) joinLocked(roomID string, e *entry) {
	room := r.rooms[roomID]
	if room == nil {
		room = make(map[string]Subscriber)
		r.rooms[roomID] = room
	}
	room[e.sub.ID()] = e.sub
	e.rooms[roomID] = struct{}{}
}

func (r *Registry) leaveLocked(roomID, connID string) {
	if room := r.rooms[roomID]; room != nil {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if e, ok := r.conns[connID]; ok {
		delete(e.rooms, roomID)
	}
}
