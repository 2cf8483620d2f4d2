package models

import (
	"time"
)

const CommentStatusEdited = "edited"

type Comment struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PostID uint `gorm:"not null;index;uniqueIndex:idx_comment_post_position" json:"-"`
	UserID uint `gorm:"not null;index" json:"-"`
	User   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	// Position is assigned under the post lock and only ever grows, so
	// ordering by it gives insertion order even after deletions.
	Position  int       `gorm:"not null;uniqueIndex:idx_comment_post_position" json:"-"`
	Text      string    `gorm:"size:300;not null" json:"text"`
	Status    string    `gorm:"size:10;not null;default:''" json:"status"`
	CreatedAt time.Time `json:"createdAt"`

	Author UserSummary `gorm:"-" json:"user"`
}

func (c *Comment) Populate() {
	c.Author = c.User.Summary()
}

func (Comment) TableName() string {
	return "post_comments"
}
