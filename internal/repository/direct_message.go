package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus_chat/internal/domain"
	"campus_chat/pkg/logger"
)

type DirectMessageRepository interface {
	Create(ctx context.Context, msg *domain.DirectMessage) error
	ListByConversation(ctx context.Context, key string) ([]*domain.DirectMessage, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.DirectMessage, error)
	// MarkConversationRead помечает прочитанными сообщения диалога, адресованные receiverID
	MarkConversationRead(ctx context.Context, key string, receiverID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, receiverID uuid.UUID) (int, error)
}

type directMessageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewDirectMessageRepository(db *pgxpool.Pool, log logger.Logger) DirectMessageRepository {
	return &directMessageRepository{db: db, log: log}
}

const directSelect = `SELECT id, conversation_key, sender_id, receiver_id, content, read, created_at FROM direct_messages `

func (r *directMessageRepository) Create(ctx context.Context, msg *domain.DirectMessage) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO direct_messages (conversation_key, sender_id, receiver_id, content, read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, created_at
	`, msg.ConversationKey, msg.SenderID, msg.ReceiverID, msg.Content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create direct message", "error", err, "conversation", msg.ConversationKey)
		return fmt.Errorf("insert direct message: %w", err)
	}
	msg.Read = false
	return nil
}

func (r *directMessageRepository) ListByConversation(ctx context.Context, key string) ([]*domain.DirectMessage, error) {
	rows, err := r.db.Query(ctx, directSelect+`WHERE conversation_key = $1 ORDER BY created_at ASC, id ASC`, key)
	if err != nil {
		r.log.Error("Failed to list direct messages", "error", err, "conversation", key)
		return nil, err
	}
	return collectDirectMessages(rows)
}

func (r *directMessageRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.DirectMessage, error) {
	rows, err := r.db.Query(ctx, directSelect+`
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		r.log.Error("Failed to list direct messages", "error", err, "user_id", userID)
		return nil, err
	}
	return collectDirectMessages(rows)
}

func (r *directMessageRepository) MarkConversationRead(ctx context.Context, key string, receiverID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE direct_messages SET read = TRUE
		WHERE conversation_key = $1 AND receiver_id = $2 AND NOT read
	`, key, receiverID)
	if err != nil {
		r.log.Error("Failed to mark conversation read", "error", err, "conversation", key)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *directMessageRepository) CountUnread(ctx context.Context, receiverID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM direct_messages WHERE receiver_id = $1 AND NOT read
	`, receiverID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count unread", "error", err, "user_id", receiverID)
		return 0, err
	}
	return count, nil
}

func collectDirectMessages(rows pgx.Rows) ([]*domain.DirectMessage, error) {
	defer rows.Close()

	messages := make([]*domain.DirectMessage, 0)
	for rows.Next() {
		m := &domain.DirectMessage{}
		if err := rows.Scan(&m.ID, &m.ConversationKey, &m.SenderID, &m.ReceiverID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
