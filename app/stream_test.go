package app

import (
	"context"
	"testing"

	"github.com/pubky-app/social-core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceReportsCacheMissesWithoutBlocking(t *testing.T) {
	core, nx, _ := newTestCore(t)
	ctx := context.Background()

	// five ids in the cached stream, only three hydrated locally
	ids := []string{"a:1", "a:2", "b:1", "b:2", "c:1"}
	require.Nil(t, core.PostStreams.Append(ctx, "timeline:all:all", ids))
	for _, id := range []string{"a:1", "a:2", "b:1"} {
		require.Nil(t, core.Posts.SaveDetails(ctx, &model.PostDetails{
			Id: id, OwnerId: model.OwnerOf(id), SyncStatus: model.SyncStatusSynced, SyncTTL: model.NextSyncTTL(),
		}))
	}
	nx.addPost("b:2", "b", "backfilled")
	nx.addPost("c:1", "c", "backfilled")

	slice, err := core.GetOrFetchPostSlice(ctx, PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceAll,
		Kind:    model.StreamKindAll,
		Limit:   5,
	})
	require.Nil(t, err)

	// all requested ids come back, hits and misses alike
	assert.Equal(t, ids, slice.NextPageIds)
	assert.Equal(t, []string{"b:2", "c:1"}, slice.CacheMissIds)
	assert.Equal(t, "c:1", slice.NextCursor)
	assert.Equal(t, 0, nx.postByIdsCalls)

	// the awaitable hydrate unit fills exactly the misses
	require.Nil(t, core.HydratePosts(ctx, slice.CacheMissIds))
	assert.Equal(t, 1, nx.postByIdsCalls)

	got, err := core.Posts.GetDetails(ctx, "b:2")
	require.Nil(t, err)
	assert.Equal(t, "backfilled", got.Content)
	assert.Equal(t, model.SyncStatusSynced, got.SyncStatus)

	// a fresh slice sees no misses and triggers no further Nexus call
	slice, err = core.GetOrFetchPostSlice(ctx, PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceAll,
		Kind:    model.StreamKindAll,
		Limit:   5,
	})
	require.Nil(t, err)
	assert.Equal(t, []string{}, slice.CacheMissIds)
	assert.Equal(t, 1, nx.postByIdsCalls)
}

func TestColdStreamFetchesFromIndex(t *testing.T) {
	core, nx, _ := newTestCore(t)
	ctx := context.Background()

	nx.streamPages[streamPageKey("timeline", "following", "all", "bitcoin")] = []string{"a:1", "a:2", "b:1"}

	slice, err := core.GetOrFetchPostSlice(ctx, PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceFollowing,
		Kind:    model.StreamKindAll,
		Tags:    []string{"bitcoin"},
		Limit:   2,
	})
	require.Nil(t, err)
	assert.Equal(t, []string{"a:1", "a:2"}, slice.NextPageIds)
	// nothing hydrated yet, so the whole page is a miss
	assert.Equal(t, []string{"a:1", "a:2"}, slice.CacheMissIds)

	// the look-ahead fetched past the window; the next page drains the
	// queue without another index roundtrip
	calls := nx.streamCalls
	slice, err = core.GetOrFetchPostSlice(ctx, PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceFollowing,
		Kind:    model.StreamKindAll,
		Tags:    []string{"bitcoin"},
		Cursor:  slice.NextCursor,
		Limit:   1,
	})
	require.Nil(t, err)
	assert.Equal(t, []string{"b:1"}, slice.NextPageIds)
	assert.Equal(t, calls, nx.streamCalls)
}

func TestIdenticalFiltersResolveToSameStream(t *testing.T) {
	core, _, _ := newTestCore(t)
	ctx := context.Background()

	req := PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceFollowing,
		Kind:    model.StreamKindAll,
		Tags:    []string{"bitcoin"},
		Limit:   5,
	}
	streamId := model.PostStreamID(req.Sorting, req.Source, req.Kind, req.Tags)
	require.Equal(t, "timeline:following:all:bitcoin", streamId)

	require.Nil(t, core.PostStreams.Append(ctx, streamId, []string{"a:1"}))

	first, err := core.GetOrFetchPostSlice(ctx, req)
	require.Nil(t, err)
	second, err := core.GetOrFetchPostSlice(ctx, req)
	require.Nil(t, err)

	// both requests hit the very same cached stream record
	assert.Equal(t, first.NextPageIds, second.NextPageIds)

	streams, err := core.PostStreams.All(ctx)
	require.Nil(t, err)
	require.Equal(t, 1, len(streams))
	assert.Equal(t, streamId, streams[0].Id)
}

func TestSliceSurvivesIndexOutage(t *testing.T) {
	core, nx, _ := newTestCore(t)
	ctx := context.Background()
	nx.server.Close()

	require.Nil(t, core.PostStreams.Append(ctx, "timeline:all:all", []string{"a:1"}))

	slice, err := core.GetOrFetchPostSlice(ctx, PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceAll,
		Kind:    model.StreamKindAll,
		Limit:   5,
	})
	require.Nil(t, err)
	// short page from the local window, not an error
	assert.Equal(t, []string{"a:1"}, slice.NextPageIds)
}

func TestUserSliceBackfill(t *testing.T) {
	core, nx, _ := newTestCore(t)
	ctx := context.Background()

	nx.userPages["subject|following"] = []string{"u1", "u2"}
	nx.addUser("u1", "User One")
	nx.addUser("u2", "User Two")

	slice, err := core.GetOrFetchUserSlice(ctx, UserSliceRequest{
		UserId: "subject",
		Type:   model.UserStreamFollowing,
		Limit:  10,
	})
	require.Nil(t, err)
	assert.Equal(t, []string{"u1", "u2"}, slice.NextPageIds)
	assert.Equal(t, []string{"u1", "u2"}, slice.CacheMissIds)

	require.Nil(t, core.HydrateUsers(ctx, slice.CacheMissIds))
	got, err := core.Users.GetDetails(ctx, "u1")
	require.Nil(t, err)
	assert.Equal(t, "User One", got.Name)

	slice, err = core.GetOrFetchUserSlice(ctx, UserSliceRequest{
		UserId: "subject",
		Type:   model.UserStreamFollowing,
		Limit:  10,
	})
	require.Nil(t, err)
	assert.Equal(t, []string{}, slice.CacheMissIds)
}

func TestStaleRecordReportedAsMiss(t *testing.T) {
	core, _, _ := newTestCore(t)
	ctx := context.Background()

	require.Nil(t, core.PostStreams.Append(ctx, "timeline:all:all", []string{"a:1"}))
	require.Nil(t, core.Posts.SaveDetails(ctx, &model.PostDetails{
		Id: "a:1", OwnerId: "a", SyncStatus: model.SyncStatusSynced,
		SyncTTL: timePast(),
	}))

	slice, err := core.GetOrFetchPostSlice(ctx, PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceAll,
		Kind:    model.StreamKindAll,
		Limit:   1,
	})
	require.Nil(t, err)
	assert.Equal(t, []string{"a:1"}, slice.NextPageIds)
	assert.Equal(t, []string{"a:1"}, slice.CacheMissIds)
}

func TestSliceNeverRepeatsVisibleIds(t *testing.T) {
	core, nx, _ := newTestCore(t)
	ctx := context.Background()

	// the cached window already shows two ids; the index answers a refetch
	// with the same two plus two genuinely new ones
	require.Nil(t, core.PostStreams.Append(ctx, "timeline:all:all", []string{"a:1", "a:2"}))
	nx.streamPages[streamPageKey("timeline", "all", "all", "")] = []string{"a:1", "a:2", "b:1", "b:2"}

	slice, err := core.GetOrFetchPostSlice(ctx, PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceAll,
		Kind:    model.StreamKindAll,
		Limit:   4,
	})
	require.Nil(t, err)
	assert.Equal(t, []string{"a:1", "a:2", "b:1", "b:2"}, slice.NextPageIds)

	seen := map[string]bool{}
	for _, id := range slice.NextPageIds {
		assert.False(t, seen[id], "id %s appears twice in one page", id)
		seen[id] = true
	}
}
