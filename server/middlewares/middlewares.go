package middlewares

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

const viewerContextKey = "viewer"

var (
	// defaultViewer is the session owner configured at startup. A cache
	// daemon serves exactly one account; requests for any other viewer are
	// rejected rather than silently served from the wrong cache.
	defaultViewer string
)

// Setup captures the session owner from the environment. This function must
// be called before any middleware is used.
func Setup() {
	defaultViewer = os.Getenv("VIEWER_ID")
}

// Viewer returns the acting viewer id of the request.
func Viewer(c *gin.Context) string {
	return c.GetString(viewerContextKey)
}

// Session resolves the viewer of each request. The optional "viewer" header
// lets a multi-account UI name the account explicitly; when present it must
// match the session owner.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := c.GetHeader("viewer")
		if viewer == "" {
			viewer = defaultViewer
		}
		if viewer == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "no viewer configured and none given in the request",
			})
			c.Abort()
			return
		}
		if defaultViewer != "" && viewer != defaultViewer {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "request viewer does not own this cache",
			})
			c.Abort()
			return
		}

		c.Set(viewerContextKey, viewer)
		c.Next()
	}
}
