package domain

import (
	"strings"

	"github.com/google/uuid"

	apperrors "campus_chat/pkg/errors"
)

// UserProfile приходит из каталога пользователей платформы (только чтение)
type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
}

// Identity - проверенные {userId, role} от слоя аутентификации
type Identity struct {
	UserID uuid.UUID
	Role   string
}

const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// RoleRoomCreatorRoles - роли, которым разрешено создавать role_room
var RoleRoomCreatorRoles = []string{RoleAdmin, RoleFaculty}

const (
	CourseRelationEnrolled = "enrolled"
	CourseRelationTeaches  = "teaches"
)

func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// NormalizeRoles приводит роли к нижнему регистру и убирает пустые и повторы
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = NormalizeRole(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func invalid(detail string) error {
	return apperrors.Validation(detail)
}
