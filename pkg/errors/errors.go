package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrValidation     = errors.New("validation failed")
	ErrInternalServer = errors.New("internal server error")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")

	ErrChatNotFound    = fmt.Errorf("chat %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
	ErrNotChatMember   = fmt.Errorf("%w: chat is not visible to this user", ErrForbidden)
	ErrSelfChat        = Validation("cannot open a conversation with yourself")
)

// Validation оборачивает ErrValidation с пояснением для клиента
func Validation(detail string) error {
	return fmt.Errorf("%w: %s", ErrValidation, detail)
}

// IsValidation сообщает, что ошибка отклонена до записи в хранилище
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrBadRequest)
}

func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage скрывает детали внутренних ошибок от клиента
func PublicMessage(err error) string {
	if HTTPStatusFromError(err) == http.StatusInternalServerError {
		return ErrInternalServer.Error()
	}
	return err.Error()
}
