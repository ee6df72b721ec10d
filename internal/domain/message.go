package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message неизменяемо после создания
type Message struct {
	ID        int64     `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Sender *UserProfile `json:"sender,omitempty"`
	Chat   *Chat        `json:"chat,omitempty"`
}

// DirectMessage - сообщение упрощенного личного канала с флагом прочтения получателем
type DirectMessage struct {
	ID              int64     `json:"id"`
	ConversationKey string    `json:"conversation_key"`
	SenderID        uuid.UUID `json:"sender_id"`
	ReceiverID      uuid.UUID `json:"receiver_id"`
	Content         string    `json:"content"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"created_at"`
}

// Involves сообщает, является ли пользователь отправителем или получателем
func (m *DirectMessage) Involves(userID uuid.UUID) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Counterpart возвращает собеседника относительно userID
func (m *DirectMessage) Counterpart(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

func (m *DirectMessage) UnreadFor(userID uuid.UUID) bool {
	return m.ReceiverID == userID && !m.Read
}

type ConversationSummary struct {
	ConversationKey string         `json:"conversation_key"`
	OtherUser       *UserProfile   `json:"other_user"`
	LastMessage     *DirectMessage `json:"last_message"`
	LastDate        time.Time      `json:"last_date"`
	UnreadCount     int            `json:"unread_count"`
}
