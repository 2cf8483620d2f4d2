package models

import (
	"time"
)

// Like is one entry of a post's likes set. The composite primary key makes
// a duplicate like impossible at the storage layer.
type Like struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string {
	return "post_likes"
}
