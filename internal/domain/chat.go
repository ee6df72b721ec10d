package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatKind - дискриминант чата; поля, специфичные для вида, заполняются только для него
type ChatKind string

const (
	ChatKindDirect   ChatKind = "direct"
	ChatKindGroup    ChatKind = "group"
	ChatKindCourse   ChatKind = "course"
	ChatKindRoleRoom ChatKind = "role_room"
)

const (
	MinGroupMembers       = 2 // без учета создателя
	DefaultCourseChatName = "Course chat"
)

func (k ChatKind) Valid() bool {
	switch k {
	case ChatKindDirect, ChatKindGroup, ChatKindCourse, ChatKindRoleRoom:
		return true
	}
	return false
}

type Chat struct {
	ID              uuid.UUID   `json:"id"`
	Kind            ChatKind    `json:"kind"`
	Name            string      `json:"name"`
	ParticipantIDs  []uuid.UUID `json:"participant_ids,omitempty"`
	ScopeCourseID   *uuid.UUID  `json:"scope_course_id,omitempty"`
	AllowedRoles    []string    `json:"allowed_roles,omitempty"`
	AdminID         *uuid.UUID  `json:"admin_id,omitempty"`
	LatestMessageID *int64      `json:"latest_message_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	// Заполняются при гидрации
	Participants  []*UserProfile `json:"participants,omitempty"`
	Admin         *UserProfile   `json:"admin,omitempty"`
	LatestMessage *Message       `json:"latest_message,omitempty"`
}

// NewDirectChat собирает личный чат двух пользователей
func NewDirectChat(a, b uuid.UUID) *Chat {
	now := time.Now().UTC()
	return &Chat{
		ID:             uuid.New(),
		Kind:           ChatKindDirect,
		ParticipantIDs: []uuid.UUID{a, b},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// VisibleTo вычисляет видимость чата на момент запроса.
// Для role_room членство не хранится: решает текущая роль пользователя.
func (c *Chat) VisibleTo(userID uuid.UUID, role string, courseIDs []uuid.UUID) bool {
	switch c.Kind {
	case ChatKindDirect, ChatKindGroup:
		return c.HasParticipant(userID)
	case ChatKindCourse:
		if c.ScopeCourseID == nil {
			return false
		}
		if c.AdminID != nil && *c.AdminID == userID {
			return true
		}
		for _, id := range courseIDs {
			if id == *c.ScopeCourseID {
				return true
			}
		}
		return false
	case ChatKindRoleRoom:
		return c.AllowsRole(role)
	}
	return false
}

func (c *Chat) AllowsRole(role string) bool {
	role = NormalizeRole(role)
	if role == "" {
		return false
	}
	for _, r := range c.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DirectKey - канонический ключ пары для личного чата, пустой для других видов
func (c *Chat) DirectKey() string {
	if c.Kind != ChatKindDirect || len(c.ParticipantIDs) != 2 {
		return ""
	}
	return ConversationKey(c.ParticipantIDs[0], c.ParticipantIDs[1])
}

// Validate проверяет инварианты конкретного вида чата
func (c *Chat) Validate() error {
	if !c.Kind.Valid() {
		return invalid("unknown chat kind")
	}
	switch c.Kind {
	case ChatKindDirect:
		if len(c.ParticipantIDs) != 2 || c.ParticipantIDs[0] == c.ParticipantIDs[1] {
			return invalid("direct chat requires exactly two distinct participants")
		}
	case ChatKindGroup:
		if strings.TrimSpace(c.Name) == "" {
			return invalid("group name is required")
		}
		if len(uniqueIDs(c.ParticipantIDs)) < MinGroupMembers+1 {
			return invalid("group chat requires at least two members besides the creator")
		}
	case ChatKindCourse:
		if c.ScopeCourseID == nil || *c.ScopeCourseID == uuid.Nil {
			return invalid("course id is required")
		}
	case ChatKindRoleRoom:
		if strings.TrimSpace(c.Name) == "" {
			return invalid("role room name is required")
		}
		if len(c.AllowedRoles) == 0 {
			return invalid("at least one role is required")
		}
	}
	return nil
}

// ParticipantsExcept возвращает участников без указанного пользователя
func (c *Chat) ParticipantsExcept(userID uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(c.ParticipantIDs))
	for _, id := range c.ParticipantIDs {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

// ConversationKey - симметричный ключ пары: key(a, b) == key(b, a)
func ConversationKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// UniqueIDs убирает дубликаты и нулевые идентификаторы, сохраняя порядок
func UniqueIDs(ids []uuid.UUID) []uuid.UUID {
	return uniqueIDs(ids)
}
