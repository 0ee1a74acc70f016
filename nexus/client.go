// Package nexus is the read adapter over the centralized, eventually
// consistent index. It is consumed, never implemented, by this core: all
// queries are read-only and none of its answers are authoritative for the
// owner's own writes (the homeserver is).
package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/pubky-app/social-core/model"
	"github.com/pubky-app/social-core/remote"
)

// Client talks to one Nexus deployment.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientFromEnv reads NEXUS_URL.
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv("NEXUS_URL"))
}

// PostView is the full detail record of one post as indexed by Nexus.
type PostView struct {
	Details struct {
		Id          string          `json:"id"`
		Author      string          `json:"author"`
		Content     string          `json:"content"`
		Kind        string          `json:"kind"`
		Uri         string          `json:"uri"`
		Attachments json.RawMessage `json:"attachments"`
		IndexedAt   int64           `json:"indexed_at"`
	} `json:"details"`
	Counts struct {
		Replies    int64 `json:"replies"`
		Reposts    int64 `json:"reposts"`
		Tags       int64 `json:"tags"`
		UniqueTags int64 `json:"unique_tags"`
	} `json:"counts"`
	Relationships struct {
		RepliedTo string `json:"replied"`
		Reposted  string `json:"reposted"`
	} `json:"relationships"`
	Tags []model.Tag `json:"tags"`
}

// UserView is the full profile record of one account as indexed by Nexus.
type UserView struct {
	Details struct {
		Id        string          `json:"id"`
		Name      string          `json:"name"`
		Bio       string          `json:"bio"`
		Image     string          `json:"image"`
		Links     json.RawMessage `json:"links"`
		Status    string          `json:"status"`
		IndexedAt int64           `json:"indexed_at"`
	} `json:"details"`
	Counts struct {
		Posts     int64 `json:"posts"`
		Replies   int64 `json:"replies"`
		Following int64 `json:"following"`
		Followers int64 `json:"followers"`
		Friends   int64 `json:"friends"`
		Tagged    int64 `json:"tagged"`
	} `json:"counts"`
	Relationship struct {
		Following  bool `json:"following"`
		FollowedBy bool `json:"followed_by"`
		Muted      bool `json:"muted"`
	} `json:"relationship"`
	Tags []model.Tag `json:"tags"`
}

// StreamPage is one page of ids from a stream query plus the cursor to
// resume from.
type StreamPage struct {
	Ids  []string `json:"ids"`
	Tail string   `json:"tail"`
}

func (c *Client) getJSON(ctx context.Context, op string, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return remote.BadResponse(op)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return remote.Unreachable(op)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remote.NewError(op, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return remote.BadResponse(op)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, op string, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return remote.BadResponse(op)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return remote.BadResponse(op)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return remote.Unreachable(op)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remote.NewError(op, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return remote.BadResponse(op)
	}
	return nil
}

// GetPostsByIds batch-fetches full post records, used to satisfy cache-miss
// backfill. Ids absent from the index are simply missing from the reply.
func (c *Client) GetPostsByIds(ctx context.Context, viewerId string, ids []string) ([]PostView, error) {
	if len(ids) == 0 {
		return []PostView{}, nil
	}
	var views []PostView
	body := map[string]interface{}{"post_ids": ids, "viewer_id": viewerId}
	if err := c.postJSON(ctx, "nexus get posts by ids", "/v0/posts/by_ids", body, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// GetUsersByIds batch-fetches full profile records.
func (c *Client) GetUsersByIds(ctx context.Context, viewerId string, ids []string) ([]UserView, error) {
	if len(ids) == 0 {
		return []UserView{}, nil
	}
	var views []UserView
	body := map[string]interface{}{"user_ids": ids, "viewer_id": viewerId}
	if err := c.postJSON(ctx, "nexus get users by ids", "/v0/users/by_ids", body, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// StreamPosts queries one page of a post stream by its filter key
// dimensions, resuming from tail when non-empty.
func (c *Client) StreamPosts(ctx context.Context, viewerId string, sorting model.StreamSorting, source model.StreamSource, kind model.StreamKind, tags []string, tail string, limit int) (*StreamPage, error) {
	q := url.Values{}
	q.Set("viewer_id", viewerId)
	q.Set("sorting", string(sorting))
	q.Set("source", string(source))
	q.Set("kind", string(kind))
	for _, tag := range tags {
		q.Add("tags", tag)
	}
	if tail != "" {
		q.Set("skip", tail)
	}
	q.Set("limit", strconv.Itoa(limit))

	var page StreamPage
	if err := c.getJSON(ctx, "nexus stream posts", "/v0/stream/posts?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// StreamUsers queries one page of a relationship stream (following,
// followers, friends, muted) of the given user.
func (c *Client) StreamUsers(ctx context.Context, viewerId string, userId string, streamType model.UserStreamType, tail string, limit int) (*StreamPage, error) {
	q := url.Values{}
	q.Set("viewer_id", viewerId)
	q.Set("user_id", userId)
	q.Set("source", string(streamType))
	if tail != "" {
		q.Set("skip", tail)
	}
	q.Set("limit", strconv.Itoa(limit))

	var page StreamPage
	if err := c.getJSON(ctx, "nexus stream users", "/v0/stream/users?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetNotifications fetches raw nested notification events older than the
// cursor, newest first.
func (c *Client) GetNotifications(ctx context.Context, userId string, cursor int64, limit int) ([]model.RawNotification, error) {
	path := fmt.Sprintf("/v0/user/%s/notifications?end=%d&limit=%d", url.PathEscape(userId), cursor, limit)
	raws := []model.RawNotification{}
	if err := c.getJSON(ctx, "nexus get notifications", path, &raws); err != nil {
		return nil, err
	}
	return raws, nil
}
