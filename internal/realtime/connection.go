package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSlowConsumer     = errors.New("connection buffer exceeded")
)

// Subscriber - то, что реестр умеет адресовать. Connection реализует его поверх websocket,
// в тестах используются подделки.
type Subscriber interface {
	ID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

type ConnectionConfig struct {
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	ReadLimit      int64
	SendBufferSize int
}

// Connection оборачивает websocket; запись идет только из writeLoop через буферизованный канал
type Connection struct {
	id     string
	userID uuid.UUID

	ws   *websocket.Conn
	cfg  ConnectionConfig
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewConnection(userID uuid.UUID, ws *websocket.Conn, cfg ConnectionConfig) *Connection {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 128
	}
	return &Connection{
		id:     uuid.NewString(),
		userID: userID,
		ws:     ws,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) UserID() uuid.UUID {
	return c.userID
}

// Start запускает writeLoop, вызывается один раз
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send ставит кадр в очередь. Переполненный буфер закрывает соединение.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrSlowConsumer
	}
}

// Close не блокируется: кадр закрытия отправляется в фоне, пока writeLoop может
// висеть на заполненном сокете
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		go c.shutdown(code, reason)
	})
}

func (c *Connection) shutdown(code int, reason string) {
	deadline := time.Now().Add(c.cfg.WriteWait)
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.ws.Close()
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
