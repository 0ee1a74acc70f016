package model

import "strings"

// Sort modes, audience sources, content kinds and relationship stream
// dimensions that compose a stream filter key. The key itself is the primary
// key of the cached stream row, so two requests with identical filters always
// resolve to the same record.

type StreamSorting string

const (
	// StreamSortingTimeline orders by monotonic descending timestamp; the
	// pagination cursor is the last item's timestamp, tie-broken by id.
	StreamSortingTimeline StreamSorting = "timeline"
	// StreamSortingEngagement orders by descending engagement score; the
	// cursor is the last item's score+id pair. Scores are computed upstream
	// (Nexus); the stream only preserves append order.
	StreamSortingEngagement StreamSorting = "engagement"
)

type StreamSource string

const (
	StreamSourceAll       StreamSource = "all"
	StreamSourceFollowing StreamSource = "following"
	StreamSourceFriends   StreamSource = "friends"
	StreamSourceBookmarks StreamSource = "bookmarks"
	StreamSourceAuthor    StreamSource = "author"
)

type StreamKind string

const (
	StreamKindAll   StreamKind = "all"
	StreamKindShort StreamKind = "short"
	StreamKindLong  StreamKind = "long"
	StreamKindImage StreamKind = "image"
	StreamKindVideo StreamKind = "video"
	StreamKindLink  StreamKind = "link"
	StreamKindFile  StreamKind = "file"
)

// UserStreamType identifies a cached user-to-user relationship stream.
type UserStreamType string

const (
	UserStreamFollowing UserStreamType = "following"
	UserStreamFollowers UserStreamType = "followers"
	UserStreamFriends   UserStreamType = "friends"
	UserStreamMuted     UserStreamType = "muted"
)

// PostStreamID builds the deterministic filter key
// "sortMode:source:kind[:tag1,tag2,...]" for a post stream. Tag order is
// preserved, so the same tag list always yields the same key.
func PostStreamID(sorting StreamSorting, source StreamSource, kind StreamKind, tags []string) string {
	id := string(sorting) + ":" + string(source) + ":" + string(kind)
	if len(tags) > 0 {
		id = id + ":" + strings.Join(tags, ",")
	}
	return id
}

// ParsePostStreamID splits a post filter key back into its dimensions.
// The second return is false for keys that do not have at least the
// sort/source/kind segments.
func ParsePostStreamID(id string) (StreamSorting, StreamSource, StreamKind, []string, bool) {
	parts := strings.SplitN(id, ":", 4)
	if len(parts) < 3 {
		return "", "", "", nil, false
	}
	var tags []string
	if len(parts) == 4 && parts[3] != "" {
		tags = strings.Split(parts[3], ",")
	}
	return StreamSorting(parts[0]), StreamSource(parts[1]), StreamKind(parts[2]), tags, true
}

// UserStreamID builds the filter key "viewer:type" for a relationship
// stream, e.g. the muted list of one viewer.
func UserStreamID(viewerID string, streamType UserStreamType) string {
	return viewerID + ":" + string(streamType)
}
