package app

import (
	"context"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/model"
	. "github.com/pubky-app/social-core/utils/log"
	"gorm.io/datatypes"
)

const (
	// defaultSliceLimit caps a slice request with no explicit limit.
	defaultSliceLimit = 30
	// lookAheadFactor controls how far past the requested window the index
	// is queried, so the next slice can usually be served from the queue.
	lookAheadFactor = 2
)

// PostSliceRequest identifies one page of one post stream. The filter
// dimensions deterministically resolve to a single cached stream record.
type PostSliceRequest struct {
	Sorting model.StreamSorting
	Source  model.StreamSource
	Kind    model.StreamKind
	Tags    []string
	Cursor  string
	Limit   int
}

// UserSliceRequest identifies one page of one relationship stream of a
// subject user (following, followers, friends, muted).
type UserSliceRequest struct {
	UserId string
	Type   model.UserStreamType
	Cursor string
	Limit  int
}

// StreamSlice is the immediate answer to a slice request. NextPageIds holds
// every requested id, hits and misses alike, so the caller can render
// placeholders for the CacheMissIds while a hydrate task fills them in.
type StreamSlice struct {
	NextPageIds  []string `json:"nextPageIds"`
	CacheMissIds []string `json:"cacheMissIds"`
	NextCursor   string   `json:"nextCursor"`
}

// GetOrFetchPostSlice reads up to Limit ids from the cached stream, topping
// it up from the look-ahead queue and, only when both are exhausted, from
// the Nexus index. Ids without a fresh local detail record are reported as
// cache misses but still returned; the caller decides when (and whether) to
// await HydratePosts for them.
func (c *Core) GetOrFetchPostSlice(ctx context.Context, req PostSliceRequest) (*StreamSlice, error) {
	if req.Limit <= 0 {
		req.Limit = defaultSliceLimit
	}
	streamId := model.PostStreamID(req.Sorting, req.Source, req.Kind, req.Tags)

	ids, err := c.PostStreams.Read(ctx, streamId, req.Cursor, req.Limit)
	if err != nil {
		return nil, err
	}

	if len(ids) < req.Limit {
		drained, err := c.PostStreams.Drain(ctx, streamId, req.Limit-len(ids))
		if err != nil {
			return nil, err
		}
		ids = append(ids, drained...)
	}

	if len(ids) < req.Limit {
		if err := c.fetchAheadPosts(ctx, streamId, req); err != nil {
			// the local window is still a valid answer when the index is
			// unreachable; a short page tells the caller to retry later
			Log.Warn("index fetch failed for stream ", streamId, ", serving local window: ", err)
		} else {
			drained, err := c.PostStreams.Drain(ctx, streamId, req.Limit-len(ids))
			if err != nil {
				return nil, err
			}
			ids = append(ids, drained...)
		}
	}

	missIds, err := c.postCacheMisses(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &StreamSlice{
		NextPageIds:  ids,
		CacheMissIds: missIds,
		NextCursor:   lastOf(ids),
	}, nil
}

// fetchAheadPosts pulls the next index page for a filter key into the
// pagination queue, resuming from the queue tail.
func (c *Core) fetchAheadPosts(ctx context.Context, streamId string, req PostSliceRequest) error {
	tail, err := c.PostStreams.QueueTail(ctx, streamId)
	if err != nil {
		return err
	}
	page, err := c.Nexus.StreamPosts(ctx, c.ViewerId, req.Sorting, req.Source, req.Kind, req.Tags, tail, req.Limit*lookAheadFactor)
	if err != nil {
		return err
	}
	if len(page.Ids) == 0 {
		return nil
	}
	return c.PostStreams.Enqueue(ctx, streamId, page.Ids, page.Tail)
}

func (c *Core) postCacheMisses(ctx context.Context, ids []string) ([]string, error) {
	fresh, err := c.Posts.FreshDetailIDs(ctx, ids, time.Now())
	if err != nil {
		return nil, err
	}
	missIds := []string{}
	for _, id := range ids {
		if !fresh[id] {
			missIds = append(missIds, id)
		}
	}
	return missIds, nil
}

// GetOrFetchUserSlice is the relationship-stream variant of
// GetOrFetchPostSlice: same miss-detection and backfill shape, different
// entity store and Nexus query.
func (c *Core) GetOrFetchUserSlice(ctx context.Context, req UserSliceRequest) (*StreamSlice, error) {
	if req.Limit <= 0 {
		req.Limit = defaultSliceLimit
	}
	streamId := model.UserStreamID(req.UserId, req.Type)

	ids, err := c.UserStreams.Read(ctx, streamId, req.Cursor, req.Limit)
	if err != nil {
		return nil, err
	}

	if len(ids) < req.Limit {
		page, err := c.Nexus.StreamUsers(ctx, c.ViewerId, req.UserId, req.Type, req.Cursor, req.Limit-len(ids))
		if err != nil {
			Log.Warn("index fetch failed for stream ", streamId, ", serving local window: ", err)
		} else if len(page.Ids) > 0 {
			if err := c.UserStreams.Append(ctx, streamId, page.Ids); err != nil {
				return nil, err
			}
			window, err := c.UserStreams.Read(ctx, streamId, req.Cursor, req.Limit)
			if err != nil {
				return nil, err
			}
			ids = window
		}
	}

	fresh, err := c.Users.FreshDetailIDs(ctx, ids, time.Now())
	if err != nil {
		return nil, err
	}
	missIds := []string{}
	for _, id := range ids {
		if !fresh[id] {
			missIds = append(missIds, id)
		}
	}

	return &StreamSlice{
		NextPageIds:  ids,
		CacheMissIds: missIds,
		NextCursor:   lastOf(ids),
	}, nil
}

// HydratePosts fetches full records for exactly the given ids from Nexus
// and bulk-persists them. It is an awaitable unit: the slice path returns
// without it, callers typically run it in a goroutine, and tests await it
// directly. Concurrent hydrates of the same ids are accepted, not
// de-duplicated.
func (c *Core) HydratePosts(ctx context.Context, ids []string) error {
	views, err := c.Nexus.GetPostsByIds(ctx, c.ViewerId, ids)
	if err != nil {
		return errors.Wrap(err, "hydrate posts")
	}
	if len(views) == 0 {
		return nil
	}

	details := make([]model.PostDetails, 0, len(views))
	tagCollections := make([]model.TagCollection, 0, len(views))
	for _, view := range views {
		d := model.PostDetails{
			Id:          view.Details.Id,
			OwnerId:     view.Details.Author,
			Content:     view.Details.Content,
			Kind:        model.StreamKind(view.Details.Kind),
			Uri:         view.Details.Uri,
			Attachments: datatypes.JSON(view.Details.Attachments),
			IndexedAt:   view.Details.IndexedAt,
			SyncStatus:  model.SyncStatusSynced,
			SyncTTL:     model.NextSyncTTL(),
		}
		details = append(details, d)

		counts := model.PostCounts{Id: view.Details.Id}
		if err := copier.Copy(&counts, &view.Counts); err != nil {
			return errors.Wrapf(err, "map post counts %s", view.Details.Id)
		}
		if err := c.Posts.SaveCounts(ctx, &counts); err != nil {
			return err
		}

		rel := model.PostRelationships{Id: view.Details.Id}
		if err := copier.Copy(&rel, &view.Relationships); err != nil {
			return errors.Wrapf(err, "map post relationships %s", view.Details.Id)
		}
		if err := c.Posts.SaveRelationships(ctx, &rel); err != nil {
			return err
		}

		if len(view.Tags) > 0 {
			tagCollections = append(tagCollections, model.TagCollection{Id: view.Details.Id, Tags: view.Tags})
		}
	}

	if err := c.Posts.BulkSaveDetails(ctx, details); err != nil {
		return err
	}
	return c.PostTags.BulkSave(ctx, tagCollections)
}

// HydrateUsers is the user-record counterpart of HydratePosts.
func (c *Core) HydrateUsers(ctx context.Context, ids []string) error {
	views, err := c.Nexus.GetUsersByIds(ctx, c.ViewerId, ids)
	if err != nil {
		return errors.Wrap(err, "hydrate users")
	}
	if len(views) == 0 {
		return nil
	}

	details := make([]model.UserDetails, 0, len(views))
	tagCollections := make([]model.TagCollection, 0, len(views))
	for _, view := range views {
		details = append(details, model.UserDetails{
			Id:         view.Details.Id,
			Name:       view.Details.Name,
			Bio:        view.Details.Bio,
			Image:      view.Details.Image,
			Links:      datatypes.JSON(view.Details.Links),
			Status:     view.Details.Status,
			IndexedAt:  view.Details.IndexedAt,
			SyncStatus: model.SyncStatusSynced,
			SyncTTL:    model.NextSyncTTL(),
		})

		counts := model.UserCounts{Id: view.Details.Id}
		if err := copier.Copy(&counts, &view.Counts); err != nil {
			return errors.Wrapf(err, "map user counts %s", view.Details.Id)
		}
		if err := c.Users.SaveCounts(ctx, &counts); err != nil {
			return err
		}

		rel := model.UserRelationship{Id: view.Details.Id}
		if err := copier.Copy(&rel, &view.Relationship); err != nil {
			return errors.Wrapf(err, "map user relationship %s", view.Details.Id)
		}
		if err := c.Users.SaveRelationship(ctx, &rel); err != nil {
			return err
		}

		if len(view.Tags) > 0 {
			tagCollections = append(tagCollections, model.TagCollection{Id: view.Details.Id, Tags: view.Tags})
		}
	}

	if err := c.Users.BulkSaveDetails(ctx, details); err != nil {
		return err
	}
	return c.UserTags.BulkSave(ctx, tagCollections)
}

func lastOf(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}
