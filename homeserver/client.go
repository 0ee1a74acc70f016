// Package homeserver is the sync adapter over the owner's authoritative
// remote store. Only the owner can write there; this core consumes the
// PUT/DELETE/list surface and never implements it.
package homeserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pubky-app/social-core/remote"
)

// Action is the verb of a homeserver request.
type Action string

const (
	ActionPut    Action = "PUT"
	ActionDelete Action = "DELETE"
)

const (
	// URIScheme addresses resources as scheme://ownerId/pub/namespace/path.
	URIScheme = "pubky"
	// AppNamespace is the application directory under the owner's /pub tree.
	AppNamespace = "pubky.app"
)

// Client talks to the homeserver through an HTTP gateway that resolves
// pubky:// uris.
type Client struct {
	GatewayURL string
	HTTP       *http.Client
}

func NewClient(gatewayURL string) *Client {
	return &Client{
		GatewayURL: gatewayURL,
		HTTP:       &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientFromEnv reads HOMESERVER_GATEWAY_URL.
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv("HOMESERVER_GATEWAY_URL"))
}

// Resource uri builders. All app data lives under
// pubky://<owner>/pub/pubky.app/.

func baseURI(owner string) string {
	return fmt.Sprintf("%s://%s/pub/%s", URIScheme, owner, AppNamespace)
}

func ProfileURI(owner string) string {
	return baseURI(owner) + "/profile.json"
}

func PostURI(owner string, localId string) string {
	return baseURI(owner) + "/posts/" + localId
}

func FollowURI(owner string, followee string) string {
	return baseURI(owner) + "/follows/" + followee
}

func MuteURI(owner string, mutee string) string {
	return baseURI(owner) + "/mutes/" + mutee
}

func TagURI(owner string, tagId string) string {
	return baseURI(owner) + "/tags/" + tagId
}

// ResourcePrefix is the enumeration root of one owner's app data.
func ResourcePrefix(owner string) string {
	return baseURI(owner) + "/"
}

// gatewayPath rewrites a pubky:// uri onto the gateway.
func (c *Client) gatewayPath(uri string) (string, bool) {
	rest, found := strings.CutPrefix(uri, URIScheme+"://")
	if !found {
		return "", false
	}
	return c.GatewayURL + "/" + rest, true
}

// Request upserts (PUT) or removes (DELETE) the JSON resource at uri. The
// body is ignored for deletes.
func (c *Client) Request(ctx context.Context, action Action, uri string, body interface{}) error {
	op := fmt.Sprintf("homeserver %s %s", action, uri)

	target, ok := c.gatewayPath(uri)
	if !ok {
		return &remote.Error{Kind: remote.KindBadRequest, Op: op}
	}

	var payload *bytes.Reader
	if action == ActionPut {
		b, err := json.Marshal(body)
		if err != nil {
			return &remote.Error{Kind: remote.KindBadRequest, Op: op}
		}
		payload = bytes.NewReader(b)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, string(action), target, payload)
	if err != nil {
		return &remote.Error{Kind: remote.KindBadRequest, Op: op}
	}
	if action == ActionPut {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return remote.Unreachable(op)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return remote.NewError(op, resp.StatusCode)
	}
	return nil
}

// ListPage is one page of keys under a prefix.
type ListPage struct {
	Keys   []string `json:"keys"`
	Cursor string   `json:"cursor"`
}

// List enumerates resource uris under prefix. Used during full-account
// deletion to discover every resource before issuing per-resource deletes.
func (c *Client) List(ctx context.Context, prefix string, cursor string, recursive bool, limit int) (*ListPage, error) {
	op := fmt.Sprintf("homeserver list %s", prefix)

	target, ok := c.gatewayPath(prefix)
	if !ok {
		return nil, &remote.Error{Kind: remote.KindBadRequest, Op: op}
	}

	q := url.Values{}
	q.Set("list", "true")
	q.Set("recursive", strconv.FormatBool(recursive))
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &remote.Error{Kind: remote.KindBadRequest, Op: op}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, remote.Unreachable(op)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remote.NewError(op, resp.StatusCode)
	}

	var page ListPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, remote.BadResponse(op)
	}
	return &page, nil
}
