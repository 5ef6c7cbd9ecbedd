package domain

import "time"

// Session is an authenticated session cached in Redis.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// SessionEvent notifies subscribers that a user's session changed.
// Session is nil when the user signed out.
type SessionEvent struct {
	UserID  string
	Session *Session
}
