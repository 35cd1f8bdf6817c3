package subscriber

import "errors"

// Sentinel errors for the subscriber service layer.
var (
	ErrNotFound       = errors.New("subscriber not found")
	ErrDuplicateEmail = errors.New("email is already subscribed")
	ErrDuplicateToken = errors.New("token already in use")
	ErrInvalidInput   = errors.New("invalid subscriber input")
	ErrInvalidToken   = errors.New("invalid or expired resubscribe token")
)
