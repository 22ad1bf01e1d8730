package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeStoreError    = "store_error"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotIdentified = "not_identified"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNotIdentified = errors.New("session not identified")
	ErrBadRequest    = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// ErrorCode maps a domain error to its wire-level code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrNotIdentified):
		return ErrCodeNotIdentified
	case errors.Is(err, ErrBadRequest):
		return ErrCodeBadRequest
	default:
		return ErrCodeStoreError
	}
}
