package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationStore persists flattened notification records ordered by their
// index timestamp.
type NotificationStore struct {
	DB *gorm.DB
}

func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{DB: db}
}

// BulkSave persists flattened notifications regardless of read state.
// Refreshes routinely re-fetch an overlapping index window, so events
// already stored (same type, timestamp and payload) are skipped rather
// than inserted again.
func (s *NotificationStore) BulkSave(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&notifications).Error
	return errors.Wrapf(err, "bulk save %d notifications", len(notifications))
}

// CountUnread counts notifications strictly newer than the lastRead cursor.
// A notification exactly at the cursor is read, not unread.
func (s *NotificationStore) CountUnread(ctx context.Context, lastRead int64) (int, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&model.Notification{}).
		Where("timestamp > ?", lastRead).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count unread notifications")
	}
	return int(count), nil
}

// GetOlderThan pages strictly-older-than a timestamp cursor, newest first.
func (s *NotificationStore) GetOlderThan(ctx context.Context, cursor int64, limit int) ([]model.Notification, error) {
	return s.GetOlderThanByTypes(ctx, nil, cursor, limit)
}

// GetOlderThanByTypes is GetOlderThan restricted to a subset of types; a nil
// slice means all types.
func (s *NotificationStore) GetOlderThanByTypes(ctx context.Context, types []string, cursor int64, limit int) ([]model.Notification, error) {
	notifications := []model.Notification{}
	query := s.DB.WithContext(ctx).
		Where("timestamp < ?", cursor).
		Order("timestamp desc").
		Limit(limit)
	if types != nil {
		query = query.Where("type IN ?", types)
	}
	err := query.Find(&notifications).Error
	return notifications, errors.Wrap(err, "query notifications older than cursor")
}

// GetAll returns every cached notification, newest first.
func (s *NotificationStore) GetAll(ctx context.Context) ([]model.Notification, error) {
	notifications := []model.Notification{}
	err := s.DB.WithContext(ctx).Order("timestamp desc").Find(&notifications).Error
	return notifications, errors.Wrap(err, "query all notifications")
}
