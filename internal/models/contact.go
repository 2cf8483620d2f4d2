package models

import (
	"time"
)

// ContactMessage is a contact-form submission. Write-once.
type ContactMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Email     string    `gorm:"size:320;not null" json:"email"`
	Subject   string    `gorm:"size:300;not null" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	SendCopy  bool      `gorm:"default:false" json:"sendCopy"`
	CreatedAt time.Time `json:"createdAt"`
}
