package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/model"
)

// PersistAndGetUnreadCount flattens the nested wire events, persists them
// all regardless of read state, and returns how many are unread relative to
// the lastRead cursor. A timestamp exactly equal to lastRead is read, not
// unread.
func (c *Core) PersistAndGetUnreadCount(ctx context.Context, raws []model.RawNotification, lastRead int64) (int, error) {
	flattened := make([]model.Notification, 0, len(raws))
	unread := 0
	for _, raw := range raws {
		notification, err := raw.Flatten()
		if err != nil {
			return 0, errors.Wrap(err, "flatten notification")
		}
		flattened = append(flattened, notification)
		if notification.Timestamp > lastRead {
			unread++
		}
	}
	if err := c.Notifications.BulkSave(ctx, flattened); err != nil {
		return 0, err
	}
	return unread, nil
}

// RefreshNotifications pulls the newest raw events from the index, persists
// them and returns the unread count against lastRead.
func (c *Core) RefreshNotifications(ctx context.Context, cursor int64, limit int, lastRead int64) (int, error) {
	raws, err := c.Nexus.GetNotifications(ctx, c.ViewerId, cursor, limit)
	if err != nil {
		return 0, errors.Wrap(err, "refresh notifications")
	}
	return c.PersistAndGetUnreadCount(ctx, raws, lastRead)
}
