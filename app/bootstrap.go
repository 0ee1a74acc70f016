package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/model"
)

// Bootstrap performs the cold-start hydration of a fresh cache: the
// viewer's own profile plus the first page of the default timeline. The
// returned slice is the initial feed the UI can render immediately.
func (c *Core) Bootstrap(ctx context.Context) (*StreamSlice, error) {
	if err := c.HydrateUsers(ctx, []string{c.ViewerId}); err != nil {
		return nil, errors.Wrap(err, "bootstrap viewer profile")
	}

	slice, err := c.GetOrFetchPostSlice(ctx, PostSliceRequest{
		Sorting: model.StreamSortingTimeline,
		Source:  model.StreamSourceAll,
		Kind:    model.StreamKindAll,
	})
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap timeline")
	}

	if len(slice.CacheMissIds) > 0 {
		if err := c.HydratePosts(ctx, slice.CacheMissIds); err != nil {
			return nil, errors.Wrap(err, "bootstrap timeline hydrate")
		}
	}
	return slice, nil
}
