package domain

import "time"

// Session represents a persisted login session identified by an opaque token.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Active    bool
}

// IsLive reports whether the session is usable at the supplied moment:
// the active flag is still set and the expiry has not passed.
func (s Session) IsLive(at time.Time) bool {
	if !s.Active {
		return false
	}
	return s.ExpiresAt.After(at)
}
