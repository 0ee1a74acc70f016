package app

import (
	"context"
	"testing"

	"github.com/pubky-app/social-core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawNotification(timestamp int64, notificationType string, extra map[string]interface{}) model.RawNotification {
	body := map[string]interface{}{"type": notificationType}
	for key, value := range extra {
		body[key] = value
	}
	return model.RawNotification{Timestamp: timestamp, Body: body}
}

func TestUnreadCountBoundary(t *testing.T) {
	core, _, _ := newTestCore(t)
	ctx := context.Background()

	raws := []model.RawNotification{
		rawNotification(999, model.NotificationFollow, map[string]interface{}{"followed_by": "a"}),
		rawNotification(1000, model.NotificationReply, map[string]interface{}{"replied_by": "b"}),
		rawNotification(1001, model.NotificationMention, map[string]interface{}{"mentioned_by": "c"}),
	}

	// a timestamp equal to the cursor is read; only strictly newer counts
	unread, err := core.PersistAndGetUnreadCount(ctx, raws, 1000)
	require.Nil(t, err)
	assert.Equal(t, 1, unread)

	// read or not, every event was persisted
	all, err := core.Notifications.GetAll(ctx)
	require.Nil(t, err)
	assert.Equal(t, 3, len(all))
}

func TestRefreshNotificationsFromIndex(t *testing.T) {
	core, nx, _ := newTestCore(t)
	ctx := context.Background()

	nx.notifications = []model.RawNotification{
		rawNotification(2000, model.NotificationNewFriend, map[string]interface{}{"friend": "a"}),
		rawNotification(3000, model.NotificationTagPost, map[string]interface{}{"tagged_by": "b", "tag": "bitcoin"}),
	}

	unread, err := core.RefreshNotifications(ctx, 0, 10, 2000)
	require.Nil(t, err)
	assert.Equal(t, 1, unread)

	stored, err := core.Notifications.GetOlderThanByTypes(ctx, []string{model.NotificationTagPost}, 4000, 10)
	require.Nil(t, err)
	require.Equal(t, 1, len(stored))
	assert.Equal(t, int64(3000), stored[0].Timestamp)
	assert.NotContains(t, string(stored[0].Payload), `"type"`)
}

func TestRefreshTwicePersistsEventsOnce(t *testing.T) {
	core, nx, _ := newTestCore(t)
	ctx := context.Background()

	nx.notifications = []model.RawNotification{
		rawNotification(2000, model.NotificationFollow, map[string]interface{}{"followed_by": "a"}),
	}

	// two refreshes over the same index window
	_, err := core.RefreshNotifications(ctx, 3000, 10, 0)
	require.Nil(t, err)
	_, err = core.RefreshNotifications(ctx, 3000, 10, 0)
	require.Nil(t, err)

	all, err := core.Notifications.GetAll(ctx)
	require.Nil(t, err)
	assert.Equal(t, 1, len(all))

	unread, err := core.Notifications.CountUnread(ctx, 0)
	require.Nil(t, err)
	assert.Equal(t, 1, unread)
}
