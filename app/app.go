// Package app orchestrates the local-first sync engine: stream slice reads
// with backfill-on-miss, optimistic writes reconciled against the
// homeserver, mute invalidation cascades and notification ingest. The UI
// layer calls this package and never touches the stores directly.
package app

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pubky-app/social-core/homeserver"
	"github.com/pubky-app/social-core/nexus"
	"github.com/pubky-app/social-core/store"
	"gorm.io/gorm"
)

// Core is one client instance: the viewer's session context plus every
// collaborator, injected explicitly so tests can isolate state. There is no
// package-level session.
type Core struct {
	DB       *gorm.DB
	ViewerId string

	Posts         *store.PostStore
	Users         *store.UserStore
	PostStreams   *store.PostStreamStore
	UserStreams   *store.UserStreamStore
	PostTags      *store.PostTagStore
	UserTags      *store.UserTagStore
	Notifications *store.NotificationStore

	Nexus      *nexus.Client
	Homeserver *homeserver.Client

	bus *gochannel.GoChannel
}

// NewCore wires a client instance over an already-migrated cache database.
func NewCore(db *gorm.DB, viewerId string, nexusClient *nexus.Client, homeserverClient *homeserver.Client) *Core {
	return &Core{
		DB:            db,
		ViewerId:      viewerId,
		Posts:         store.NewPostStore(db),
		Users:         store.NewUserStore(db),
		PostStreams:   store.NewPostStreamStore(db),
		UserStreams:   store.NewUserStreamStore(db),
		PostTags:      store.NewPostTagStore(db),
		UserTags:      store.NewUserTagStore(db),
		Notifications: store.NewNotificationStore(db),
		Nexus:         nexusClient,
		Homeserver:    homeserverClient,
		bus:           gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
	}
}

// Close releases the event bus. The database handle is owned by the caller.
func (c *Core) Close() error {
	return c.bus.Close()
}

func nowMilli() int64 {
	return time.Now().UnixMilli()
}
