package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"campus_chat/internal/domain"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/logger"
)

// Guard отвечает на вопросы доступа, для которых нужно хранилище
type Guard interface {
	// AuthorizeJoin возвращает ошибку, если чат не виден пользователю
	AuthorizeJoin(ctx context.Context, who domain.Identity, chatID uuid.UUID) error
	// ResolveRelay загружает сохраненное сообщение с участниками чата для пересылки
	ResolveRelay(ctx context.Context, who domain.Identity, messageID int64) (*domain.Message, error)
}

// Session обслуживает одно websocket соединение: читает кадры и переводит их в операции реестра
type Session struct {
	conn       *Connection
	identity   domain.Identity
	registry   *Registry
	dispatcher Dispatcher
	guard      Guard
	log        logger.Logger
	opTimeout  time.Duration
}

func NewSession(conn *Connection, identity domain.Identity, registry *Registry, dispatcher Dispatcher, guard Guard, log logger.Logger) *Session {
	return &Session{
		conn:       conn,
		identity:   identity,
		registry:   registry,
		dispatcher: dispatcher,
		guard:      guard,
		log:        log.With("conn_id", conn.ID(), "user_id", identity.UserID.String()),
		opTimeout:  5 * time.Second,
	}
}

// Run блокируется до закрытия соединения. При выходе соединение покидает все комнаты.
func (s *Session) Run(ctx context.Context) {
	ws := s.conn.ws
	cfg := s.conn.cfg

	s.registry.Attach(s.conn)
	s.conn.Start()
	defer func() {
		s.registry.Detach(s.conn.ID())
		s.conn.Close(websocket.CloseNormalClosure, "session closed")
		s.log.Info("WebSocket session closed")
	}()

	if cfg.ReadLimit > 0 {
		ws.SetReadLimit(cfg.ReadLimit)
	}
	_ = ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	s.log.Info("WebSocket session opened")

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.log.Warn("WebSocket read failed", "error", err)
			}
			return
		}
		s.handle(ctx, data)
	}
}

func (s *Session) handle(ctx context.Context, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.log.Warn("Dropped malformed frame", "error", err)
		return
	}

	switch frame.Type {
	case EventSetup:
		s.handleSetup(frame)
	case EventJoinChat:
		s.handleJoin(ctx, frame)
	case EventLeaveChat:
		s.handleLeave(frame)
	case EventTyping, EventStopTyping:
		s.handleTyping(ctx, frame)
	case EventNewMessage:
		s.handleRelay(ctx, frame)
	default:
		s.log.Warn("Dropped frame of unknown type", "type", frame.Type)
	}
}

func (s *Session) handleSetup(frame inboundFrame) {
	userID, err := uuid.Parse(frame.setupUserID())
	if err != nil {
		s.log.Warn("Dropped setup without user id", "error", err)
		return
	}
	// setup может привязать соединение только к пользователю из токена
	if userID != s.identity.UserID {
		s.log.Warn("Rejected setup for another user", "requested", userID.String())
		s.replyError("forbidden", "setup user does not match token")
		return
	}

	room, err := s.registry.Identify(s.conn.ID(), userID)
	if err != nil {
		s.log.Warn("Setup failed", "error", err)
		return
	}
	s.send(Event{Type: EventConnected, Room: room, UserID: userID.String()})
}

func (s *Session) handleJoin(ctx context.Context, frame inboundFrame) {
	if s.registry.State(s.conn.ID()) != StateIdentified {
		s.log.Warn("Dropped join before setup", "room", frame.Room)
		return
	}
	chatID, err := uuid.Parse(frame.Room)
	if err != nil {
		s.log.Warn("Dropped join with invalid room", "room", frame.Room)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.guard.AuthorizeJoin(opCtx, s.identity, chatID); err != nil {
		s.log.Warn("Join denied", "room", frame.Room, "error", err)
		s.replyError(errorCode(err), apperrors.PublicMessage(err))
		return
	}
	s.registry.Join(s.conn.ID(), ChatRoom(chatID))
}

func (s *Session) handleLeave(frame inboundFrame) {
	if !s.registry.Leave(s.conn.ID(), frame.Room) {
		s.log.Debug("Ignored leave for room not joined", "room", frame.Room)
	}
}

func (s *Session) handleTyping(ctx context.Context, frame inboundFrame) {
	if frame.Room == "" || !s.registry.IsMember(s.conn.ID(), frame.Room) {
		s.log.Debug("Ignored typing for room not joined", "room", frame.Room)
		return
	}

	event := Event{Type: frame.Type, Room: frame.Room, UserID: s.identity.UserID.String()}
	if err := s.dispatcher.PublishExcept(ctx, frame.Room, event, s.conn.ID()); err != nil {
		s.log.Warn("Failed to publish typing", "error", err)
	}
}

// handleRelay пересылает уже сохраненное сообщение в персональные комнаты участников, кроме отправителя
func (s *Session) handleRelay(ctx context.Context, frame inboundFrame) {
	if frame.Message == nil || frame.Message.ID <= 0 {
		s.log.Warn("Dropped new message without id")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	msg, err := s.guard.ResolveRelay(opCtx, s.identity, frame.Message.ID)
	if err != nil {
		s.log.Warn("Dropped new message relay", "message_id", frame.Message.ID, "error", err)
		return
	}
	if msg.Chat == nil {
		return
	}

	event := Event{Type: EventMessageReceived, Room: ChatRoom(msg.ChatID), Message: msg}
	for _, userID := range msg.Chat.ParticipantsExcept(msg.SenderID) {
		if err := s.dispatcher.Publish(opCtx, UserRoom(userID), event); err != nil {
			s.log.Warn("Failed to relay message", "error", err, "to", userID.String())
		}
	}
}

func (s *Session) send(event Event) {
	payload, err := event.Encode()
	if err != nil {
		s.log.Error("Failed to encode event", "error", err, "type", event.Type)
		return
	}
	_ = s.conn.Send(payload)
}

func (s *Session) replyError(code, message string) {
	s.send(Event{Type: EventError, Code: code, Error: message})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrValidation):
		return "bad_request"
	default:
		return "internal_error"
	}
}
