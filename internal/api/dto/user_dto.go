package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the signed token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// CreateUserRequest is the payload for POST /users.
type CreateUserRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	FullName string      `json:"full_name,omitempty"`
}

// UserResponse describes an account without its password hash.
type UserResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	FullName string      `json:"full_name"`
	IsActive bool        `json:"is_active"`
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        int64     `json:"id"`
	TicketID  *int64    `json:"ticket_id,omitempty"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
