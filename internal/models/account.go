package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// Account represents a registered user record. The relay consumes it read-only
// during session bootstrap; registration and login live in a separate service.
type Account struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"` // Display name shown in rooms
	Email    string `gorm:"uniqueIndex;not null" json:"email"`    // Unique email, JWT subject
	Password string `json:"-"`                                    // bcrypt hash, never serialized
}

/** -------------------- DTOs -------------------- */
// Participant is one member of a room as reported to clients and the
// room-detail endpoint.
type Participant struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// RoomListResponse is the payload of the room-listing endpoint.
type RoomListResponse struct {
	Rooms []string `json:"rooms"`
}

// RoomDetailResponse is the payload of the room-detail endpoint.
type RoomDetailResponse struct {
	RoomID            string        `json:"room_id"`
	ParticipantsCount int           `json:"participants_count"`
	Participants      []Participant `json:"participants"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest is the login endpoint payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the access token handed back on login.
type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterRequest is the registration endpoint payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// ErrorResponse is the generic error body for REST endpoints.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
