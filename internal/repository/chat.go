package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus_chat/internal/domain"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/logger"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	// CreateDirect вставляет личный чат или возвращает уже существующий для этой пары
	CreateDirect(ctx context.Context, chat *domain.Chat) (*domain.Chat, bool, error)
	// UpsertCourseChat возвращает существующий чат курса, если он уже есть
	UpsertCourseChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	FindDirect(ctx context.Context, directKey string) (*domain.Chat, error)
	ListVisible(ctx context.Context, userID uuid.UUID, role string, courseIDs []uuid.UUID) ([]*domain.Chat, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

const chatSelect = `
	SELECT c.id, c.kind, c.name, c.scope_course_id, c.allowed_roles, c.admin_id,
	       c.latest_message_id, c.created_at, c.updated_at,
	       COALESCE(array_agg(p.user_id::text ORDER BY p.joined_at, p.user_id)
	                FILTER (WHERE p.user_id IS NOT NULL), '{}')
	FROM chats c
	LEFT JOIN chat_participants p ON p.chat_id = c.id
`

func (r *chatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := r.insertChat(ctx, tx, chat, ""); err != nil {
			return err
		}
		return r.insertParticipants(ctx, tx, chat.ID, chat.ParticipantIDs)
	})
	if err != nil {
		r.log.Error("Failed to create chat", "error", err, "kind", chat.Kind)
		return err
	}
	return nil
}

func (r *chatRepository) CreateDirect(ctx context.Context, chat *domain.Chat) (*domain.Chat, bool, error) {
	return r.createUnique(ctx, chat, `ON CONFLICT (direct_key) WHERE kind = 'direct' DO NOTHING`, func() (*domain.Chat, error) {
		return r.FindDirect(ctx, chat.DirectKey())
	})
}

func (r *chatRepository) UpsertCourseChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, bool, error) {
	return r.createUnique(ctx, chat, `ON CONFLICT (scope_course_id) WHERE kind = 'course' DO NOTHING`, func() (*domain.Chat, error) {
		return r.findOne(ctx, `WHERE c.kind = 'course' AND c.scope_course_id = $1`, *chat.ScopeCourseID)
	})
}

// createUnique вставляет чат под уникальным индексом; при конфликте читает победителя
func (r *chatRepository) createUnique(ctx context.Context, chat *domain.Chat, onConflict string, existing func() (*domain.Chat, error)) (*domain.Chat, bool, error) {
	created := false
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		inserted, err := r.insertChat(ctx, tx, chat, onConflict)
		if err != nil || !inserted {
			return err
		}
		created = true
		return r.insertParticipants(ctx, tx, chat.ID, chat.ParticipantIDs)
	})
	if err != nil {
		r.log.Error("Failed to create chat", "error", err, "kind", chat.Kind)
		return nil, false, err
	}
	if created {
		return chat, true, nil
	}

	found, err := existing()
	if err != nil {
		return nil, false, err
	}
	return found, false, nil
}

func (r *chatRepository) insertChat(ctx context.Context, tx pgx.Tx, chat *domain.Chat, onConflict string) (bool, error) {
	roles := chat.AllowedRoles
	if roles == nil {
		roles = []string{}
	}

	query := `
		INSERT INTO chats (id, kind, name, direct_key, scope_course_id, allowed_roles, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)
	` + onConflict

	tag, err := tx.Exec(ctx, query,
		chat.ID, string(chat.Kind), chat.Name, chat.DirectKey(), chat.ScopeCourseID,
		roles, chat.AdminID, chat.CreatedAt, chat.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert chat: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *chatRepository) insertParticipants(ctx context.Context, tx pgx.Tx, chatID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO chat_participants (chat_id, user_id)
		SELECT $1, u FROM unnest($2::uuid[]) AS u
		ON CONFLICT DO NOTHING
	`, chatID, uuidStrings(userIDs))
	if err != nil {
		return fmt.Errorf("insert participants: %w", err)
	}
	return nil
}

func (r *chatRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	return r.findOne(ctx, `WHERE c.id = $1`, id)
}

func (r *chatRepository) FindDirect(ctx context.Context, directKey string) (*domain.Chat, error) {
	return r.findOne(ctx, `WHERE c.kind = 'direct' AND c.direct_key = $1`, directKey)
}

func (r *chatRepository) findOne(ctx context.Context, where string, args ...interface{}) (*domain.Chat, error) {
	row := r.db.QueryRow(ctx, chatSelect+where+` GROUP BY c.id`, args...)
	chat, err := scanChat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrChatNotFound
		}
		r.log.Error("Failed to get chat", "error", err)
		return nil, err
	}
	return chat, nil
}

func (r *chatRepository) ListVisible(ctx context.Context, userID uuid.UUID, role string, courseIDs []uuid.UUID) ([]*domain.Chat, error) {
	// Видимость role_room вычисляется по текущей роли, таблицы членства для них нет
	query := chatSelect + `
		WHERE c.id IN (SELECT chat_id FROM chat_participants WHERE user_id = $1)
		   OR (c.kind = 'course' AND (c.scope_course_id = ANY($2::uuid[]) OR c.admin_id = $1))
		   OR (c.kind = 'role_room' AND $3 <> '' AND $3 = ANY(c.allowed_roles))
		GROUP BY c.id
		ORDER BY c.updated_at DESC, c.id
	`

	rows, err := r.db.Query(ctx, query, userID, uuidStrings(courseIDs), domain.NormalizeRole(role))
	if err != nil {
		r.log.Error("Failed to list chats", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	chats := make([]*domain.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			r.log.Error("Failed to scan chat", "error", err)
			return nil, err
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return chats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	chat := &domain.Chat{}
	var (
		kind         string
		participants []string
	)
	err := row.Scan(
		&chat.ID, &kind, &chat.Name, &chat.ScopeCourseID, &chat.AllowedRoles, &chat.AdminID,
		&chat.LatestMessageID, &chat.CreatedAt, &chat.UpdatedAt, &participants,
	)
	if err != nil {
		return nil, err
	}

	chat.Kind = domain.ChatKind(kind)
	chat.ParticipantIDs = make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("participant id %q: %w", p, err)
		}
		chat.ParticipantIDs = append(chat.ParticipantIDs, id)
	}
	if len(chat.AllowedRoles) == 0 {
		chat.AllowedRoles = nil
	}
	return chat, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
