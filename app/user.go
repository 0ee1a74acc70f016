package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/homeserver"
	"github.com/pubky-app/social-core/model"
	"github.com/pubky-app/social-core/store"
	"gorm.io/gorm"
)

// Follow flips the viewer's relationship to followee and updates the cached
// following (and, when reciprocal, friends) streams in one transaction,
// then writes the follow record to the homeserver. Idempotent.
func (c *Core) Follow(ctx context.Context, followee string) error {
	if followee == c.ViewerId {
		return errors.New("cannot follow self")
	}

	rel, err := c.Users.GetRelationship(ctx, followee)
	if err != nil {
		return err
	}
	if rel.Following {
		return nil
	}

	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel.Following = true
		if err := store.NewUserStore(tx).SaveRelationship(ctx, rel); err != nil {
			return err
		}
		streams := store.NewUserStreamStore(tx)
		if err := streams.Prepend(ctx, model.UserStreamID(c.ViewerId, model.UserStreamFollowing), []string{followee}); err != nil {
			return err
		}
		if rel.FollowedBy {
			return streams.Prepend(ctx, model.UserStreamID(c.ViewerId, model.UserStreamFriends), []string{followee})
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "follow %s", followee)
	}

	body := map[string]interface{}{"created_at": nowMilli()}
	return c.Homeserver.Request(ctx, homeserver.ActionPut, homeserver.FollowURI(c.ViewerId, followee), body)
}

// Unfollow reverses Follow. Idempotent.
func (c *Core) Unfollow(ctx context.Context, followee string) error {
	rel, err := c.Users.GetRelationship(ctx, followee)
	if err != nil {
		return err
	}
	if !rel.Following {
		return nil
	}

	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel.Following = false
		if err := store.NewUserStore(tx).SaveRelationship(ctx, rel); err != nil {
			return err
		}
		streams := store.NewUserStreamStore(tx)
		if err := streams.RemoveItems(ctx, model.UserStreamID(c.ViewerId, model.UserStreamFollowing), []string{followee}); err != nil {
			return err
		}
		return streams.RemoveItems(ctx, model.UserStreamID(c.ViewerId, model.UserStreamFriends), []string{followee})
	})
	if err != nil {
		return errors.Wrapf(err, "unfollow %s", followee)
	}

	return c.Homeserver.Request(ctx, homeserver.ActionDelete, homeserver.FollowURI(c.ViewerId, followee), nil)
}

// SaveProfile writes the viewer's own profile locally first and then puts
// profile.json on the homeserver.
func (c *Core) SaveProfile(ctx context.Context, details *model.UserDetails) error {
	if details.Id != c.ViewerId {
		return errors.Errorf("cannot save profile of %s as viewer %s", details.Id, c.ViewerId)
	}

	details.SyncStatus = model.SyncStatusLocal
	details.SyncTTL = model.NextSyncTTL()
	if err := c.Users.SaveDetails(ctx, details); err != nil {
		return err
	}

	body := map[string]interface{}{
		"name":   details.Name,
		"bio":    details.Bio,
		"image":  details.Image,
		"status": details.Status,
	}
	if err := c.Homeserver.Request(ctx, homeserver.ActionPut, homeserver.ProfileURI(c.ViewerId), body); err != nil {
		return err
	}

	details.SyncStatus = model.SyncStatusSynced
	return c.Users.SaveDetails(ctx, details)
}
