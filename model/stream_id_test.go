package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostStreamIDDeterministic(t *testing.T) {
	a := PostStreamID(StreamSortingTimeline, StreamSourceFollowing, StreamKindAll, []string{"bitcoin"})
	b := PostStreamID(StreamSortingTimeline, StreamSourceFollowing, StreamKindAll, []string{"bitcoin"})
	assert.Equal(t, a, b)
	assert.Equal(t, "timeline:following:all:bitcoin", a)
}

func TestPostStreamIDPreservesTagOrder(t *testing.T) {
	a := PostStreamID(StreamSortingEngagement, StreamSourceAll, StreamKindImage, []string{"dev", "bitcoin"})
	assert.Equal(t, "engagement:all:image:dev,bitcoin", a)

	b := PostStreamID(StreamSortingEngagement, StreamSourceAll, StreamKindImage, []string{"bitcoin", "dev"})
	assert.NotEqual(t, a, b)
}

func TestPostStreamIDWithoutTags(t *testing.T) {
	assert.Equal(t, "timeline:all:all", PostStreamID(StreamSortingTimeline, StreamSourceAll, StreamKindAll, nil))
}

func TestUserStreamID(t *testing.T) {
	assert.Equal(t, "viewer:muted", UserStreamID("viewer", UserStreamMuted))
	assert.Equal(t, "viewer:following", UserStreamID("viewer", UserStreamFollowing))
}
