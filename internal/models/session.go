package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are carried inside the signed session cookie. The JWT ID
// (jti) doubles as the server-side session key, so a logout can revoke the
// cookie before its expiry.
type SessionClaims struct {
	UserID string   `json:"uid"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Session is the server-side record stored in Redis for the lifetime of a
// login.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      UserRole  `json:"role"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
