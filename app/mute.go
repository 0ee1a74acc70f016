package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/homeserver"
	"github.com/pubky-app/social-core/model"
	"github.com/pubky-app/social-core/store"
	. "github.com/pubky-app/social-core/utils/log"
	"gorm.io/gorm"
)

// Mute flips the (muter, mutee) relationship to muted and cascades the
// change into every cached view.
//
// The relationship upsert and the muted-stream prepend run in one local
// transaction so a reader never observes a half-applied mute. The cache
// sweep that strips the mutee's posts from every cached stream and queue is
// deliberately outside that transaction: it is best-effort, and a failure
// there is logged, not returned, because the relationship flip is the
// source of truth and stale cached posts are a display nicety.
//
// The remote mute record is written after the local commit; a remote
// failure is surfaced but the local mute stands.
func (c *Core) Mute(ctx context.Context, muter string, mutee string) error {
	rel, err := c.Users.GetRelationship(ctx, mutee)
	if err != nil {
		return err
	}
	if rel.Muted {
		return nil
	}

	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel.Muted = true
		if err := store.NewUserStore(tx).SaveRelationship(ctx, rel); err != nil {
			return err
		}
		return store.NewUserStreamStore(tx).Prepend(ctx, model.UserStreamID(muter, model.UserStreamMuted), []string{mutee})
	})
	if err != nil {
		return errors.Wrapf(err, "mute %s", mutee)
	}

	if err := c.PostStreams.RemoveOwnerEverywhere(ctx, mutee); err != nil {
		Log.Error("mute cache sweep failed for ", mutee, ": ", err)
	}
	c.publishMuteEvent(MuteEvent{Muter: muter, Mutee: mutee, Muted: true})

	return c.Homeserver.Request(ctx, homeserver.ActionPut, homeserver.MuteURI(muter, mutee), map[string]interface{}{})
}

// Unmute reverses the relationship flip and removes the mutee from the
// muted stream. Restoration of previously swept posts is intentionally
// lazy: nothing is re-inserted here; the mutee's posts reappear only
// through the normal backfill path the next time a stream is organically
// re-fetched from the index.
func (c *Core) Unmute(ctx context.Context, muter string, mutee string) error {
	rel, err := c.Users.GetRelationship(ctx, mutee)
	if err != nil {
		return err
	}
	if !rel.Muted {
		return nil
	}

	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel.Muted = false
		if err := store.NewUserStore(tx).SaveRelationship(ctx, rel); err != nil {
			return err
		}
		return store.NewUserStreamStore(tx).RemoveItems(ctx, model.UserStreamID(muter, model.UserStreamMuted), []string{mutee})
	})
	if err != nil {
		return errors.Wrapf(err, "unmute %s", mutee)
	}

	c.publishMuteEvent(MuteEvent{Muter: muter, Mutee: mutee, Muted: false})

	return c.Homeserver.Request(ctx, homeserver.ActionDelete, homeserver.MuteURI(muter, mutee), nil)
}
