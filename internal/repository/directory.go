package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus_chat/internal/domain"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/logger"
)

// DirectoryRepository читает каталог пользователей и курсов платформы
type DirectoryRepository interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error)
	GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.UserProfile, error)
	ListCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type directoryRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewDirectoryRepository(db *pgxpool.Pool, log logger.Logger) DirectoryRepository {
	return &directoryRepository{db: db, log: log}
}

func (r *directoryRepository) GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	p := &domain.UserProfile{}
	err := r.db.QueryRow(ctx, `
		SELECT id, display_name, role, avatar_url FROM users WHERE id = $1
	`, id).Scan(&p.ID, &p.DisplayName, &p.Role, &p.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to get profile", "error", err, "user_id", id)
		return nil, err
	}
	return p, nil
}

func (r *directoryRepository) GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.UserProfile, error) {
	result := make(map[uuid.UUID]*domain.UserProfile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, display_name, role, avatar_url FROM users WHERE id = ANY($1::uuid[])
	`, uuidStrings(ids))
	if err != nil {
		r.log.Error("Failed to get profiles", "error", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p := &domain.UserProfile{}
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Role, &p.AvatarURL); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

func (r *directoryRepository) ListCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT course_id FROM course_members WHERE user_id = $1
	`, userID)
	if err != nil {
		r.log.Error("Failed to list courses", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
