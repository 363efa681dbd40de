// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUserIDLen = 128

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is an externally assigned identity. It is never generated here and
// stays stable across reconnects.
type UserID string

// ParseUserID validates a client supplied identity.
func ParseUserID(raw string) (UserID, error) {
	if len(raw) == 0 {
		return "", ErrUserIDEmpty
	}
	if len(raw) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(raw), nil
}
