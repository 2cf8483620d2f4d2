package models

import (
	"time"
)

type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:100;not null" json:"title"`
	Description   string    `gorm:"size:500;not null" json:"description"`
	ImageURL      string    `gorm:"not null" json:"imageUrl"`
	ImagePublicID string    `gorm:"not null" json:"imagePublicId"` // blob-store deletion key
	CreatedBy     uint      `gorm:"not null;index" json:"-"`
	Owner         User      `gorm:"foreignKey:CreatedBy;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Likes         []Like    `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Comments      []Comment `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`

	// Not stored; filled by Populate after queries
	CreatedByUser UserSummary `gorm:"-" json:"createdBy"`
	LikedBy       []uint      `gorm:"-" json:"likes"`
}

// Populate fills the derived JSON fields from the preloaded associations.
func (p *Post) Populate() {
	p.CreatedByUser = p.Owner.Summary()
	p.LikedBy = make([]uint, len(p.Likes))
	for i, l := range p.Likes {
		p.LikedBy[i] = l.UserID
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	for i := range p.Comments {
		p.Comments[i].Populate()
	}
}
