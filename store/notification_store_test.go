package store

import (
	"context"
	"testing"

	"github.com/pubky-app/social-core/model"
	"github.com/pubky-app/social-core/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotifications(t *testing.T, s *NotificationStore) {
	t.Helper()
	require.Nil(t, s.BulkSave(context.Background(), []model.Notification{
		{Type: model.NotificationFollow, Timestamp: 1000},
		{Type: model.NotificationReply, Timestamp: 1001},
		{Type: model.NotificationMention, Timestamp: 999},
		{Type: model.NotificationFollow, Timestamp: 500},
	}))
}

func TestCountUnreadBoundary(t *testing.T) {
	db := utils.CreateTempDB(t)
	s := NewNotificationStore(db)
	seedNotifications(t, s)

	// exactly at lastRead is read, strictly newer is unread
	count, err := s.CountUnread(context.Background(), 1000)
	require.Nil(t, err)
	assert.Equal(t, 1, count)

	count, err = s.CountUnread(context.Background(), 0)
	require.Nil(t, err)
	assert.Equal(t, 4, count)
}

func TestGetOlderThanPagesNewestFirst(t *testing.T) {
	db := utils.CreateTempDB(t)
	s := NewNotificationStore(db)
	seedNotifications(t, s)
	ctx := context.Background()

	page, err := s.GetOlderThan(ctx, 1002, 2)
	require.Nil(t, err)
	require.Equal(t, 2, len(page))
	assert.Equal(t, int64(1001), page[0].Timestamp)
	assert.Equal(t, int64(1000), page[1].Timestamp)

	// strictly older than the cursor: 1000 itself is excluded
	page, err = s.GetOlderThan(ctx, 1000, 10)
	require.Nil(t, err)
	require.Equal(t, 2, len(page))
	assert.Equal(t, int64(999), page[0].Timestamp)
	assert.Equal(t, int64(500), page[1].Timestamp)
}

func TestGetOlderThanByTypes(t *testing.T) {
	db := utils.CreateTempDB(t)
	s := NewNotificationStore(db)
	seedNotifications(t, s)
	ctx := context.Background()

	page, err := s.GetOlderThanByTypes(ctx, []string{model.NotificationFollow}, 2000, 10)
	require.Nil(t, err)
	require.Equal(t, 2, len(page))
	assert.Equal(t, int64(1000), page[0].Timestamp)
	assert.Equal(t, int64(500), page[1].Timestamp)

	// nil means all types
	page, err = s.GetOlderThanByTypes(ctx, nil, 2000, 10)
	require.Nil(t, err)
	assert.Equal(t, 4, len(page))

	// empty (non-nil) filter matches nothing
	page, err = s.GetOlderThanByTypes(ctx, []string{}, 2000, 10)
	require.Nil(t, err)
	assert.Equal(t, 0, len(page))
}

func TestGetAllNewestFirst(t *testing.T) {
	db := utils.CreateTempDB(t)
	s := NewNotificationStore(db)
	seedNotifications(t, s)

	all, err := s.GetAll(context.Background())
	require.Nil(t, err)
	require.Equal(t, 4, len(all))
	assert.Equal(t, int64(1001), all[0].Timestamp)
	assert.Equal(t, int64(500), all[3].Timestamp)
}

func TestBulkSaveSkipsAlreadyStoredEvents(t *testing.T) {
	db := utils.CreateTempDB(t)
	s := NewNotificationStore(db)
	ctx := context.Background()

	event := model.Notification{
		Type: model.NotificationFollow, Timestamp: 1000,
		Payload: []byte(`{"followed_by":"a"}`),
	}
	require.Nil(t, s.BulkSave(ctx, []model.Notification{event}))
	// an overlapping refresh window re-delivers the same event
	require.Nil(t, s.BulkSave(ctx, []model.Notification{event, {
		Type: model.NotificationReply, Timestamp: 1001,
		Payload: []byte(`{"replied_by":"b"}`),
	}}))

	all, err := s.GetAll(ctx)
	require.Nil(t, err)
	assert.Equal(t, 2, len(all))

	count, err := s.CountUnread(ctx, 0)
	require.Nil(t, err)
	assert.Equal(t, 2, count)
}

func TestBulkSaveKeepsDistinctEventsAtSameTimestamp(t *testing.T) {
	db := utils.CreateTempDB(t)
	s := NewNotificationStore(db)
	ctx := context.Background()

	// two different followers in the same millisecond are two events
	require.Nil(t, s.BulkSave(ctx, []model.Notification{
		{Type: model.NotificationFollow, Timestamp: 1000, Payload: []byte(`{"followed_by":"a"}`)},
		{Type: model.NotificationFollow, Timestamp: 1000, Payload: []byte(`{"followed_by":"b"}`)},
	}))

	all, err := s.GetAll(ctx)
	require.Nil(t, err)
	assert.Equal(t, 2, len(all))
}
