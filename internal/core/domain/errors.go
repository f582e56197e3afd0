package domain

import "errors"

var (
	ErrInvalidSessionID  = errors.New("invalid session id")
	ErrInvalidUserID     = errors.New("invalid user id")
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidChatID     = errors.New("invalid chat id")
	ErrChatNotFound      = errors.New("chat not found")
	ErrPeerUnresolved    = errors.New("peer session handle could not be resolved")
	ErrMissingCredential = errors.New("translation api key not configured")
	ErrRateLimited       = errors.New("translation rate limit exceeded")
	ErrEmptyMessage      = errors.New("message text is empty")
)
