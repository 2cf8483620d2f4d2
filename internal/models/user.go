package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"` // always lowercase
	Password  string    `gorm:"not null" json:"-"`                 // bcrypt hash
	CreatedAt time.Time `json:"createdAt"`
	// No UpdatedAt / DeletedAt: users are write-once.
}

// UserSummary is the public projection used when a user is embedded in
// another resource (post owner, comment author, liker).
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
