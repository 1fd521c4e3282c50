package domain

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:120;not null" json:"email"`
	PasswordHash string    `gorm:"size:1024;not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	IsVerified   bool      `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor is the authenticated principal behind a request.
type Actor struct {
	UserID    uint
	Email     string
	IsAdmin   bool
	SessionID string
}

func ActorFromUser(u *User, sessionID string) Actor {
	return Actor{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin, SessionID: sessionID}
}
