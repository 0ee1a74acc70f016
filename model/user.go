package model

import (
	"time"

	"gorm.io/datatypes"
)

/*

UserDetails is the hydrated profile record of an account, cached on device.

Id: owner pubky, primary key
Name: display name
Bio: profile text
Image: avatar uri
Links: profile links as JSON array of {title, url}
Status: free-form status line
IndexedAt: millisecond timestamp assigned by the index
SyncStatus / SyncTTL: same sync-state semantics as PostDetails

*/

type UserDetails struct {
	Id         string `gorm:"primaryKey"`
	Name       string
	Bio        string
	Image      string
	Links      datatypes.JSON
	Status     string
	IndexedAt  int64
	SyncStatus SyncStatus
	SyncTTL    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (UserDetails) TableName() string {
	return "user_details"
}

func (u *UserDetails) Stale(now time.Time) bool {
	return u.SyncStatus == SyncStatusSynced && now.After(u.SyncTTL)
}

/*

UserCounts carries the per-account counters reported by Nexus.

*/

type UserCounts struct {
	Id        string `gorm:"primaryKey"`
	Posts     int64
	Replies   int64
	Following int64
	Followers int64
	Friends   int64
	Tagged    int64
	UpdatedAt time.Time
}

func (UserCounts) TableName() string {
	return "user_counts"
}

/*

UserRelationship is the viewer-relative relation to one other account.

Id: the other account's pubky, primary key (one viewer per local cache)
Following: viewer follows them
FollowedBy: they follow the viewer
Muted: viewer muted them

A mute against an account never seen before implicitly creates the record
with Following=false, FollowedBy=false.

*/

type UserRelationship struct {
	Id         string `gorm:"primaryKey"`
	Following  bool
	FollowedBy bool
	Muted      bool
	UpdatedAt  time.Time
}

func (UserRelationship) TableName() string {
	return "user_relationships"
}
