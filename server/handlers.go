// Package server exposes the core's operations as a JSON API for the UI
// process. Every handler resolves the acting viewer from the middleware and
// delegates to app.Core; no handler touches the stores directly.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/app"
	"github.com/pubky-app/social-core/model"
	"github.com/pubky-app/social-core/server/middlewares"
	"github.com/pubky-app/social-core/utils"
	. "github.com/pubky-app/social-core/utils/log"
)

var errMarkersUnavailable = errors.New("read marker store is not configured")

// Handlers binds the route handlers to one core instance and the read
// marker store. Markers may be nil when redis is not configured; the marker
// routes then answer 503.
type Handlers struct {
	Core    *app.Core
	Markers *utils.ReadMarkerStore
}

func NewHandlers(core *app.Core, markers *utils.ReadMarkerStore) *Handlers {
	return &Handlers{Core: core, Markers: markers}
}

// Register attaches every route to the router.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/stream/posts", h.StreamPosts)
	r.GET("/stream/users", h.StreamUsers)

	r.POST("/posts", h.CreatePost)
	r.PUT("/posts/:owner/:id", h.EditPost)
	r.DELETE("/posts/:owner/:id", h.DeletePost)
	r.PUT("/posts/:owner/:id/tags/:label", h.TagPost)
	r.DELETE("/posts/:owner/:id/tags/:label", h.UntagPost)
	r.POST("/posts/read", h.MarkPostsRead)

	r.PUT("/users/:id/follow", h.Follow)
	r.DELETE("/users/:id/follow", h.Unfollow)
	r.PUT("/users/:id/mute", h.Mute)
	r.DELETE("/users/:id/mute", h.Unmute)
	r.PUT("/users/:id/tags/:label", h.TagUser)
	r.DELETE("/users/:id/tags/:label", h.UntagUser)

	r.PUT("/profile", h.SaveProfile)
	r.DELETE("/account", h.DeleteAccount)
	r.POST("/bootstrap", h.Bootstrap)

	r.GET("/notifications", h.Notifications)
	r.POST("/notifications/refresh", h.RefreshNotifications)
	r.POST("/notifications/read", h.MarkNotificationsRead)
}

func abortWithError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
	c.Abort()
}

// StreamPosts answers one slice of one post stream. The slice is returned
// immediately; hydration of the reported cache misses runs in the
// background so a slow index never blocks the response.
func (h *Handlers) StreamPosts(c *gin.Context) {
	req := app.PostSliceRequest{
		Sorting: model.StreamSorting(c.DefaultQuery("sorting", string(model.StreamSortingTimeline))),
		Source:  model.StreamSource(c.DefaultQuery("source", string(model.StreamSourceAll))),
		Kind:    model.StreamKind(c.DefaultQuery("kind", string(model.StreamKindAll))),
		Cursor:  c.Query("cursor"),
	}
	if tags := c.Query("tags"); tags != "" {
		req.Tags = strings.Split(tags, ",")
	}
	if limit := c.Query("limit"); limit != "" {
		req.Limit, _ = strconv.Atoi(limit)
	}

	slice, err := h.Core.GetOrFetchPostSlice(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	if len(slice.CacheMissIds) > 0 {
		missIds := slice.CacheMissIds
		go func() {
			// the request context dies with the response; hydration outlives it
			if err := h.Core.HydratePosts(context.Background(), missIds); err != nil {
				Log.Warn("background post hydration: ", err)
			}
		}()
	}
	c.JSON(http.StatusOK, slice)
}

func (h *Handlers) StreamUsers(c *gin.Context) {
	req := app.UserSliceRequest{
		UserId: c.DefaultQuery("user_id", middlewares.Viewer(c)),
		Type:   model.UserStreamType(c.DefaultQuery("type", string(model.UserStreamFollowing))),
		Cursor: c.Query("cursor"),
	}
	if limit := c.Query("limit"); limit != "" {
		req.Limit, _ = strconv.Atoi(limit)
	}

	slice, err := h.Core.GetOrFetchUserSlice(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	if len(slice.CacheMissIds) > 0 {
		missIds := slice.CacheMissIds
		go func() {
			if err := h.Core.HydrateUsers(context.Background(), missIds); err != nil {
				Log.Warn("background user hydration: ", err)
			}
		}()
	}
	c.JSON(http.StatusOK, slice)
}

func (h *Handlers) CreatePost(c *gin.Context) {
	var input app.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	id, err := h.Core.CreatePost(c.Request.Context(), input)
	if err != nil && id == "" {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	// a non-empty id alongside an error means the local write landed and
	// only the homeserver write failed: the post exists, still pending
	c.JSON(http.StatusCreated, gin.H{"id": id, "pending": err != nil})
}

func (h *Handlers) EditPost(c *gin.Context) {
	var input struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.Core.EditPost(c.Request.Context(), pathPostId(c), input.Content); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) DeletePost(c *gin.Context) {
	if err := h.Core.DeletePost(c.Request.Context(), pathPostId(c)); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) TagPost(c *gin.Context) {
	if err := h.Core.TagPost(c.Request.Context(), pathPostId(c), c.Param("label")); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) UntagPost(c *gin.Context) {
	if err := h.Core.UntagPost(c.Request.Context(), pathPostId(c), c.Param("label")); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) Follow(c *gin.Context) {
	if err := h.Core.Follow(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) Unfollow(c *gin.Context) {
	if err := h.Core.Unfollow(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) Mute(c *gin.Context) {
	if err := h.Core.Mute(c.Request.Context(), middlewares.Viewer(c), c.Param("id")); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) Unmute(c *gin.Context) {
	if err := h.Core.Unmute(c.Request.Context(), middlewares.Viewer(c), c.Param("id")); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) TagUser(c *gin.Context) {
	if err := h.Core.TagUser(c.Request.Context(), c.Param("id"), c.Param("label")); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) UntagUser(c *gin.Context) {
	if err := h.Core.UntagUser(c.Request.Context(), c.Param("id"), c.Param("label")); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) SaveProfile(c *gin.Context) {
	var details model.UserDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	details.Id = middlewares.Viewer(c)
	if err := h.Core.SaveProfile(c.Request.Context(), &details); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) DeleteAccount(c *gin.Context) {
	if err := h.Core.DeleteAccount(c.Request.Context()); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) Bootstrap(c *gin.Context) {
	slice, err := h.Core.Bootstrap(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, slice)
}

// Notifications pages the locally cached notifications newest first, with
// the viewer's unread count against the redis lastRead cursor.
func (h *Handlers) Notifications(c *gin.Context) {
	cursor := time.Now().UnixMilli() + 1
	if q := c.Query("cursor"); q != "" {
		cursor, _ = strconv.ParseInt(q, 10, 64)
	}
	limit := 50
	if q := c.Query("limit"); q != "" {
		limit, _ = strconv.Atoi(q)
	}
	var types []string
	if q := c.Query("types"); q != "" {
		types = strings.Split(q, ",")
	}

	notifications, err := h.Core.Notifications.GetOlderThanByTypes(c.Request.Context(), types, cursor, limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	unread := 0
	if h.Markers != nil {
		lastRead, err := h.Markers.GetLastRead(middlewares.Viewer(c))
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
		unread, err = h.Core.Notifications.CountUnread(c.Request.Context(), lastRead)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "unread": unread})
}

// RefreshNotifications pulls fresh events from the index into the local
// cache and reports the unread count.
func (h *Handlers) RefreshNotifications(c *gin.Context) {
	lastRead := int64(0)
	if h.Markers != nil {
		var err error
		lastRead, err = h.Markers.GetLastRead(middlewares.Viewer(c))
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
	}

	unread, err := h.Core.RefreshNotifications(c.Request.Context(), time.Now().UnixMilli()+1, 100, lastRead)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

func (h *Handlers) MarkNotificationsRead(c *gin.Context) {
	if h.Markers == nil {
		abortWithError(c, http.StatusServiceUnavailable, errMarkersUnavailable)
		return
	}
	var input struct {
		Timestamp int64 `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.Markers.SetLastRead(middlewares.Viewer(c), input.Timestamp); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) MarkPostsRead(c *gin.Context) {
	if h.Markers == nil {
		abortWithError(c, http.StatusServiceUnavailable, errMarkersUnavailable)
		return
	}
	var input struct {
		PostIds []string `json:"post_ids"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.Markers.MarkPostsAsRead(input.PostIds, middlewares.Viewer(c)); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathPostId(c *gin.Context) string {
	return c.Param("owner") + model.CompositeIDDelimiter + c.Param("id")
}
