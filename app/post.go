package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/homeserver"
	"github.com/pubky-app/social-core/model"
	. "github.com/pubky-app/social-core/utils/log"
)

// CreatePostInput is what the caller provides for a new post.
type CreatePostInput struct {
	Content   string
	Kind      model.StreamKind
	RepliedTo string
	Reposted  string
}

// CreatePost writes the post optimistically to the local cache (sync_status
// "local"), surfaces it in matching cached timeline streams, then attempts
// the durable homeserver write. A remote failure is returned to the caller
// but the local write is not rolled back; on success the record flips to
// "synced". The local write strictly precedes the remote attempt.
func (c *Core) CreatePost(ctx context.Context, input CreatePostInput) (string, error) {
	if input.Content == "" {
		return "", errors.New("post content must not be empty")
	}
	if input.Kind == "" {
		input.Kind = model.StreamKindShort
	}

	localId := uuid.New().String()
	id, err := model.BuildCompositeID(c.ViewerId, localId)
	if err != nil {
		return "", errors.Wrap(err, "create post")
	}

	uri := homeserver.PostURI(c.ViewerId, localId)
	details := &model.PostDetails{
		Id:         id,
		OwnerId:    c.ViewerId,
		Content:    input.Content,
		Kind:       input.Kind,
		Uri:        uri,
		IndexedAt:  time.Now().UnixMilli(),
		SyncStatus: model.SyncStatusLocal,
		SyncTTL:    model.NextSyncTTL(),
	}
	if err := c.Posts.SaveDetails(ctx, details); err != nil {
		return "", err
	}
	if err := c.Posts.SaveCounts(ctx, &model.PostCounts{Id: id}); err != nil {
		return "", err
	}
	if input.RepliedTo != "" || input.Reposted != "" {
		rel := &model.PostRelationships{Id: id, RepliedTo: input.RepliedTo, Reposted: input.Reposted}
		if err := c.Posts.SaveRelationships(ctx, rel); err != nil {
			return "", err
		}
	}
	c.surfaceOwnPost(ctx, details)

	body := map[string]interface{}{
		"content": input.Content,
		"kind":    string(input.Kind),
	}
	if input.RepliedTo != "" {
		body["parent"] = input.RepliedTo
	}
	if input.Reposted != "" {
		body["embed"] = input.Reposted
	}
	if err := c.Homeserver.Request(ctx, homeserver.ActionPut, uri, body); err != nil {
		return id, err
	}

	details.SyncStatus = model.SyncStatusSynced
	details.SyncTTL = model.NextSyncTTL()
	return id, c.Posts.SaveDetails(ctx, details)
}

// surfaceOwnPost prepends a freshly written post into the cached timeline
// streams it belongs to, so the author sees it without waiting for the
// index. Failures here are display-only and logged.
func (c *Core) surfaceOwnPost(ctx context.Context, details *model.PostDetails) {
	streams, err := c.PostStreams.All(ctx)
	if err != nil {
		Log.Warn("surface own post: ", err)
		return
	}
	for _, stream := range streams {
		sorting, source, kind, tags, ok := model.ParsePostStreamID(stream.Id)
		if !ok || sorting != model.StreamSortingTimeline || len(tags) > 0 {
			continue
		}
		if kind != model.StreamKindAll && kind != details.Kind {
			continue
		}
		if source != model.StreamSourceAll && source != model.StreamSourceFollowing && source != model.StreamSourceAuthor {
			continue
		}
		if err := c.PostStreams.Prepend(ctx, stream.Id, []string{details.Id}); err != nil {
			Log.Warn("surface own post into ", stream.Id, ": ", err)
		}
	}
}

// EditPost updates the post content locally first and then re-puts the
// resource on the homeserver. Only the viewer's own posts are editable.
func (c *Core) EditPost(ctx context.Context, id string, content string) error {
	owner, localId, err := model.ParseCompositeID(id)
	if err != nil {
		return err
	}
	if owner != c.ViewerId {
		return errors.Errorf("cannot edit post %s not owned by viewer", id)
	}

	details, err := c.Posts.GetDetails(ctx, id)
	if err != nil {
		return err
	}
	details.Content = content
	details.SyncStatus = model.SyncStatusLocal
	if err := c.Posts.SaveDetails(ctx, details); err != nil {
		return err
	}

	body := map[string]interface{}{"content": content, "kind": string(details.Kind)}
	if err := c.Homeserver.Request(ctx, homeserver.ActionPut, homeserver.PostURI(owner, localId), body); err != nil {
		return err
	}

	details.SyncStatus = model.SyncStatusSynced
	details.SyncTTL = model.NextSyncTTL()
	return c.Posts.SaveDetails(ctx, details)
}

// DeletePost removes the post from the local cache and every cached stream,
// then deletes the homeserver resource.
func (c *Core) DeletePost(ctx context.Context, id string) error {
	owner, localId, err := model.ParseCompositeID(id)
	if err != nil {
		return err
	}
	if owner != c.ViewerId {
		return errors.Errorf("cannot delete post %s not owned by viewer", id)
	}

	if err := c.Posts.DeleteDetails(ctx, id); err != nil {
		return err
	}
	if err := c.PostStreams.RemoveEverywhere(ctx, []string{id}); err != nil {
		Log.Error("delete post stream sweep failed for ", id, ": ", err)
	}

	return c.Homeserver.Request(ctx, homeserver.ActionDelete, homeserver.PostURI(owner, localId), nil)
}

// tagRecordId derives the deterministic homeserver id of one (target uri,
// label) tag record, so tagging and untagging address the same resource.
func tagRecordId(targetUri string, label string) string {
	sum := sha256.Sum256([]byte(targetUri + ":" + label))
	return hex.EncodeToString(sum[:16])
}

// TagPost applies label to a post as the viewer: local tag collection first,
// homeserver tag record after. Re-tagging with the same label is a no-op
// that skips the remote write.
func (c *Core) TagPost(ctx context.Context, postId string, label string) error {
	owner, localId, err := model.ParseCompositeID(postId)
	if err != nil {
		return err
	}
	if label == "" {
		return errors.New("tag label must not be empty")
	}

	collection, err := c.PostTags.Get(ctx, postId)
	if err != nil {
		return err
	}
	if !collection.AddTagger(label, c.ViewerId) {
		return nil
	}
	collection.FindByLabel(label).Relationship = true
	if err := c.PostTags.Save(ctx, collection); err != nil {
		return err
	}

	targetUri := homeserver.PostURI(owner, localId)
	body := map[string]interface{}{"uri": targetUri, "label": label, "created_at": time.Now().UnixMilli()}
	return c.Homeserver.Request(ctx, homeserver.ActionPut, homeserver.TagURI(c.ViewerId, tagRecordId(targetUri, label)), body)
}

// UntagPost removes the viewer's label from a post and deletes the
// homeserver tag record.
func (c *Core) UntagPost(ctx context.Context, postId string, label string) error {
	owner, localId, err := model.ParseCompositeID(postId)
	if err != nil {
		return err
	}

	collection, err := c.PostTags.Get(ctx, postId)
	if err != nil {
		return err
	}
	if !collection.RemoveTagger(label, c.ViewerId) {
		return nil
	}
	if tag := collection.FindByLabel(label); tag != nil {
		tag.Relationship = false
	}
	if err := c.PostTags.Save(ctx, collection); err != nil {
		return err
	}

	targetUri := homeserver.PostURI(owner, localId)
	return c.Homeserver.Request(ctx, homeserver.ActionDelete, homeserver.TagURI(c.ViewerId, tagRecordId(targetUri, label)), nil)
}

// TagUser and UntagUser mirror the post variants over the user tag table.

func (c *Core) TagUser(ctx context.Context, userId string, label string) error {
	if label == "" {
		return errors.New("tag label must not be empty")
	}

	collection, err := c.UserTags.Get(ctx, userId)
	if err != nil {
		return err
	}
	if !collection.AddTagger(label, c.ViewerId) {
		return nil
	}
	collection.FindByLabel(label).Relationship = true
	if err := c.UserTags.Save(ctx, collection); err != nil {
		return err
	}

	targetUri := homeserver.ProfileURI(userId)
	body := map[string]interface{}{"uri": targetUri, "label": label, "created_at": time.Now().UnixMilli()}
	return c.Homeserver.Request(ctx, homeserver.ActionPut, homeserver.TagURI(c.ViewerId, tagRecordId(targetUri, label)), body)
}

func (c *Core) UntagUser(ctx context.Context, userId string, label string) error {
	collection, err := c.UserTags.Get(ctx, userId)
	if err != nil {
		return err
	}
	if !collection.RemoveTagger(label, c.ViewerId) {
		return nil
	}
	if tag := collection.FindByLabel(label); tag != nil {
		tag.Relationship = false
	}
	if err := c.UserTags.Save(ctx, collection); err != nil {
		return err
	}

	targetUri := homeserver.ProfileURI(userId)
	return c.Homeserver.Request(ctx, homeserver.ActionDelete, homeserver.TagURI(c.ViewerId, tagRecordId(targetUri, label)), nil)
}
