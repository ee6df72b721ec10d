package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Имена событий совпадают с тем, что отправляют и ожидают клиенты
const (
	EventSetup      = "setup"
	EventJoinChat   = "join chat"
	EventLeaveChat  = "leave chat"
	EventTyping     = "typing"
	EventStopTyping = "stop typing"
	EventNewMessage = "new message"

	EventConnected             = "connected"
	EventMessageReceived       = "message received"
	EventDirectMessageReceived = "direct message received"
	EventError                 = "error"
)

// Event - исходящий кадр
type Event struct {
	Type    string      `json:"type"`
	Room    string      `json:"room,omitempty"`
	UserID  string      `json:"user_id,omitempty"`
	Message interface{} `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// UserRoom - персональная комната пользователя, в нее попадают после setup
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// ChatRoom - комната чата, идентификатор совпадает с id чата
func ChatRoom(chatID uuid.UUID) string {
	return chatID.String()
}

type inboundFrame struct {
	Type string `json:"type"`
	Room string `json:"room"`
	// setup присылает профиль целиком, нужен только id
	User *struct {
		ID string `json:"id"`
	} `json:"user,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Message *struct {
		ID int64 `json:"id"`
	} `json:"message,omitempty"`
}

func (f inboundFrame) setupUserID() string {
	if f.User != nil && f.User.ID != "" {
		return f.User.ID
	}
	return f.UserID
}
