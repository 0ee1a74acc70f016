package app

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/homeserver"
	"github.com/pubky-app/social-core/model"
	. "github.com/pubky-app/social-core/utils/log"
)

const deletionListPageSize = 200

// DeleteAccount removes every resource the viewer owns from the
// homeserver. Resources are enumerated first, then deleted one by one with
// profile.json strictly last: a crash mid-deletion leaves the profile
// itself as the final marker of an incomplete deletion instead of a
// dangling profile pointing at missing data.
func (c *Core) DeleteAccount(ctx context.Context) error {
	prefix := homeserver.ResourcePrefix(c.ViewerId)

	keys := []string{}
	cursor := ""
	for {
		page, err := c.Homeserver.List(ctx, prefix, cursor, true, deletionListPageSize)
		if err != nil {
			return errors.Wrap(err, "enumerate account resources")
		}
		keys = append(keys, page.Keys...)
		if page.Cursor == "" || len(page.Keys) == 0 {
			break
		}
		cursor = page.Cursor
	}

	profileKeys := []string{}
	for _, key := range keys {
		if strings.HasSuffix(key, "/profile.json") {
			profileKeys = append(profileKeys, key)
			continue
		}
		if err := c.Homeserver.Request(ctx, homeserver.ActionDelete, key, nil); err != nil {
			return errors.Wrapf(err, "delete account resource %s", key)
		}
	}
	for _, key := range profileKeys {
		if err := c.Homeserver.Request(ctx, homeserver.ActionDelete, key, nil); err != nil {
			return errors.Wrapf(err, "delete account profile %s", key)
		}
	}

	// The remote account is gone; drop the viewer's own cached records too.
	// Other users' caches of this account expire through their sync TTLs.
	if err := c.DB.WithContext(ctx).Where("id = ?", c.ViewerId).Delete(&model.UserDetails{}).Error; err != nil {
		Log.Error("drop local profile after account deletion: ", err)
	}
	return nil
}
