package models

import "time"

// Session is the signed-in state returned by the identity service.
// Username is the profile display name.
type Session struct {
	UserID       string
	Email        string
	Username     string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the ID token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
