package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Empty batches must short-circuit before reaching redis: MSetNX and MGet
// both reject zero-argument calls. A store with no live connection proves
// the guard because any redis call would panic or error.
func TestEmptyBatchesNeverReachRedis(t *testing.T) {
	store := &ReadMarkerStore{}

	require.Nil(t, store.MarkPostsAsRead([]string{}, "viewer"))
	require.Nil(t, store.MarkPostsAsRead(nil, "viewer"))

	status, err := store.GetPostsReadStatus(nil, "viewer")
	require.Nil(t, err)
	assert.Equal(t, []bool{}, status)
}
