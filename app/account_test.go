package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pubky-app/social-core/model"
	"github.com/pubky-app/social-core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteAccountLeavesProfileForLast(t *testing.T) {
	core, _, hs := newTestCore(t)
	ctx := context.Background()

	// enumeration order deliberately puts profile.json in the middle
	hs.listKeys = []string{
		"pubky://viewer/pub/pubky.app/posts/1",
		"pubky://viewer/pub/pubky.app/profile.json",
		"pubky://viewer/pub/pubky.app/follows/alice",
		"pubky://viewer/pub/pubky.app/tags/abc",
	}
	require.Nil(t, core.Users.SaveDetails(ctx, &model.UserDetails{Id: testViewer, Name: "Viewer"}))

	require.Nil(t, core.DeleteAccount(ctx))

	log := hs.requestLog()
	require.Equal(t, 4, len(log))
	for _, entry := range log {
		assert.True(t, strings.HasPrefix(entry, "DELETE "))
	}
	// profile.json is deleted strictly after every other resource
	assert.True(t, strings.HasSuffix(log[3], "/profile.json"))
	for _, entry := range log[:3] {
		assert.False(t, strings.HasSuffix(entry, "/profile.json"))
	}

	// the viewer's own cached profile is dropped too
	_, err := core.Users.GetDetails(ctx, testViewer)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDeleteAccountStopsOnEnumerationFailure(t *testing.T) {
	core, _, hs := newTestCore(t)
	hs.setFailAll(true)

	err := core.DeleteAccount(context.Background())
	require.NotNil(t, err)
	assert.Equal(t, 0, len(hs.requestLog()))
}

func TestBootstrapHydratesViewerAndTimeline(t *testing.T) {
	core, nx, _ := newTestCore(t)
	ctx := context.Background()

	nx.addUser(testViewer, "Viewer")
	nx.addPost("a:1", "a", "first")
	nx.addPost("b:1", "b", "second")
	nx.streamPages[streamPageKey("timeline", "all", "all", "")] = []string{"a:1", "b:1"}

	slice, err := core.Bootstrap(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"a:1", "b:1"}, slice.NextPageIds)

	// the misses reported by the slice were awaited and filled in
	profile, err := core.Users.GetDetails(ctx, testViewer)
	require.Nil(t, err)
	assert.Equal(t, "Viewer", profile.Name)
	assert.Equal(t, model.SyncStatusSynced, profile.SyncStatus)

	details, err := core.Posts.GetDetails(ctx, "a:1")
	require.Nil(t, err)
	assert.Equal(t, "first", details.Content)
}
