// Package memory - хранилище в памяти процесса для STORAGE_BACKEND=memory и тестов.
// Семантика совпадает с Postgres-реализацией: уникальность пары и курса,
// указатель последнего сообщения, пометка прочтения.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"campus_chat/internal/domain"
	"campus_chat/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	chats        map[uuid.UUID]*domain.Chat
	directIndex  map[string]uuid.UUID
	courseIndex  map[uuid.UUID]uuid.UUID
	messages     []*domain.Message
	directs      []*domain.DirectMessage
	users        map[uuid.UUID]*domain.UserProfile
	courses      map[uuid.UUID]map[uuid.UUID]struct{}
	rateCounters map[string]*rateWindow

	nextMessageID int64
	nextDirectID  int64
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		chats:        make(map[uuid.UUID]*domain.Chat),
		directIndex:  make(map[string]uuid.UUID),
		courseIndex:  make(map[uuid.UUID]uuid.UUID),
		users:        make(map[uuid.UUID]*domain.UserProfile),
		courses:      make(map[uuid.UUID]map[uuid.UUID]struct{}),
		rateCounters: make(map[string]*rateWindow),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// NewRepositories собирает агрегатор репозиториев поверх одного Store
func NewRepositories(s *Store) *repository.Repositories {
	return &repository.Repositories{
		Chat:          &chatRepository{s: s},
		Message:       &messageRepository{s: s},
		DirectMessage: &directMessageRepository{s: s},
		Directory:     &directoryRepository{s: s},
		RateLimit:     &rateLimitRepository{s: s},
	}
}

// SetClock подменяет источник времени для created_at
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// UpsertUser добавляет или заменяет профиль в каталоге
func (s *Store) UpsertUser(p domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.users[p.ID] = &cp
}

// AddCourseMember связывает пользователя с курсом (enrolled или teaches)
func (s *Store) AddCourseMember(courseID, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.courses[userID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		s.courses[userID] = members
	}
	members[courseID] = struct{}{}
}

type seedFile struct {
	Users []domain.UserProfile `json:"users"`
	// CourseMembers - связи пользователь-курс
	CourseMembers []struct {
		CourseID uuid.UUID `json:"course_id"`
		UserID   uuid.UUID `json:"user_id"`
		Relation string    `json:"relation"`
	} `json:"course_members"`
}

// LoadSeed заполняет каталог из JSON файла
func (s *Store) LoadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read directory seed: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse directory seed: %w", err)
	}

	for _, u := range seed.Users {
		u.Role = domain.NormalizeRole(u.Role)
		s.UpsertUser(u)
	}
	for _, m := range seed.CourseMembers {
		switch m.Relation {
		case domain.CourseRelationEnrolled, domain.CourseRelationTeaches:
		default:
			return fmt.Errorf("course member %s: unknown relation %q", m.UserID, m.Relation)
		}
		s.AddCourseMember(m.CourseID, m.UserID)
	}
	return nil
}

func cloneChat(c *domain.Chat) *domain.Chat {
	cp := *c
	cp.ParticipantIDs = append([]uuid.UUID(nil), c.ParticipantIDs...)
	cp.AllowedRoles = append([]string(nil), c.AllowedRoles...)
	if len(cp.AllowedRoles) == 0 {
		cp.AllowedRoles = nil
	}
	if c.LatestMessageID != nil {
		id := *c.LatestMessageID
		cp.LatestMessageID = &id
	}
	cp.Participants = nil
	cp.Admin = nil
	cp.LatestMessage = nil
	return &cp
}

func cloneMessage(m *domain.Message) *domain.Message {
	cp := *m
	cp.Sender = nil
	cp.Chat = nil
	return &cp
}

func cloneDirect(m *domain.DirectMessage) *domain.DirectMessage {
	cp := *m
	return &cp
}
