package paymentlog

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormStore persists log entries to the relational store
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Entry{})
}

func (s *GormStore) Persist(ctx context.Context, entry *Entry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) QueryRecent(ctx context.Context, tenantID string, limit int, level Level, category Category) ([]Entry, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if level != "" {
		q = q.Where("level = ?", level)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var entries []Entry
	err := q.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

func (s *GormStore) QueryWindow(ctx context.Context, tenantID string, since time.Time) ([]Entry, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
