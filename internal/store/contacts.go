package store

import (
	"context"
	"pixelnest/internal/models"

	"gorm.io/gorm"
)

type Contacts interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
}

type ContactStore struct {
	db *gorm.DB
}

func NewContactStore(db *gorm.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) Create(ctx context.Context, msg *models.ContactMessage) error {
	return s.db.WithContext(ctx).Create(msg).Error
}
