package model

import (
	"time"

	"gorm.io/datatypes"
)

/*

PostDetails is the hydrated detail record of a post, cached on device.

Id: composite id "owner:localId", primary key
OwnerId: author pubky, denormalized from Id for author filters (mute sweep)
Content: post body in plain text
Kind: content kind ("short", "long", "image", "video", "link", "file")
Uri: homeserver resource uri this post is durably stored at
Attachments: uris of attached blobs
IndexedAt: millisecond timestamp assigned by the index, used for timeline order
SyncStatus: "local" for optimistic on-device writes, "synced" once confirmed
            remote or hydrated from Nexus
SyncTTL: when the cached copy goes stale and must be re-validated

A record is either fully present or absent; there are no partial writes.

*/

type PostDetails struct {
	Id          string `gorm:"primaryKey"`
	OwnerId     string `gorm:"index"`
	Content     string
	Kind        StreamKind
	Uri         string
	Attachments datatypes.JSON
	IndexedAt   int64
	SyncStatus  SyncStatus
	SyncTTL     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PostDetails) TableName() string {
	return "post_details"
}

// Stale reports whether the cached record is past its sync TTL and should be
// re-validated through the backfill path. Optimistic local writes are never
// considered stale: remote truth does not know them yet.
func (p *PostDetails) Stale(now time.Time) bool {
	return p.SyncStatus == SyncStatusSynced && now.After(p.SyncTTL)
}

/*

PostCounts carries the per-post engagement counters reported by Nexus.

Id: composite id of the post, primary key
Replies/Reposts/Tags/UniqueTags: denormalized counters, display only

*/

type PostCounts struct {
	Id         string `gorm:"primaryKey"`
	Replies    int64
	Reposts    int64
	Tags       int64
	UniqueTags int64
	UpdatedAt  time.Time
}

func (PostCounts) TableName() string {
	return "post_counts"
}

/*

PostRelationships records how a post relates to other resources: the post it
replies to and the post it reposts, both as composite ids (may be empty).

*/

type PostRelationships struct {
	Id        string `gorm:"primaryKey"`
	RepliedTo string
	Reposted  string
	UpdatedAt time.Time
}

func (PostRelationships) TableName() string {
	return "post_relationships"
}
