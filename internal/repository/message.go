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

type MessageRepository interface {
	// Create сохраняет сообщение и переносит указатель latest_message_id чата
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]*domain.Message, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Message, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageSelect = `SELECT id, chat_id, sender_id, content, created_at FROM chat_messages `

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		// Строка чата блокируется до коммита: указатель обновляется в порядке вставки
		var chatID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM chats WHERE id = $1 FOR UPDATE`, msg.ChatID).Scan(&chatID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrChatNotFound
			}
			return fmt.Errorf("lock chat: %w", err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO chat_messages (chat_id, sender_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, msg.ChatID, msg.SenderID, msg.Content).Scan(&msg.ID, &msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE chats SET latest_message_id = $2, updated_at = $3 WHERE id = $1
		`, msg.ChatID, msg.ID, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("update latest message: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrChatNotFound) {
			r.log.Error("Failed to create message", "error", err, "chat_id", msg.ChatID)
		}
		return err
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	msg := &domain.Message{}
	err := r.db.QueryRow(ctx, messageSelect+`WHERE id = $1`, id).
		Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", id)
		return nil, err
	}
	return msg, nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID uuid.UUID) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx, messageSelect+`WHERE chat_id = $1 ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err, "chat_id", chatID)
		return nil, err
	}
	return collectMessages(rows)
}

func (r *messageRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Message, error) {
	result := make(map[int64]*domain.Message, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, messageSelect+`WHERE id = ANY($1)`, ids)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err)
		return nil, err
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		result[m.ID] = m
	}
	return result, nil
}

func collectMessages(rows pgx.Rows) ([]*domain.Message, error) {
	defer rows.Close()

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		msg := &domain.Message{}
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
