package domain

import "time"

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusPaused UserStatus = "paused"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Points       int
	Level        string
	Status       UserStatus
	CreatedAt    time.Time
}

// CanLogin reports whether the account may establish new sessions.
func (u User) CanLogin() bool {
	return u.Status == UserStatusActive
}
