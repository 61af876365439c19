package handler

import (
	"github.com/Monthlyaway/shortlink-redirect/internal/auth"
	"github.com/Monthlyaway/shortlink-redirect/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RouteLimits holds optional rate-limit middleware per route; nil disables limiting
type RouteLimits struct {
	Shorten  gin.HandlerFunc
	Redirect gin.HandlerFunc
}

// Register mounts all link routes on router
func (h *LinkHandler) Register(router *gin.Engine, authn auth.Authenticator, limits RouteLimits) {
	// escaped original URLs in /links/{url}/stats must stay one segment
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.GET("/health", h.HealthCheck)

	links := router.Group("/links")
	links.POST("/shorten", chain(limits.Shorten, middleware.OptionalAuth(authn), h.Shorten)...)

	owned := links.Group("", middleware.RequireAuth(authn))
	{
		owned.GET("/search", h.Search)
		owned.GET("/:key/stats", h.Stats)
		owned.PUT("/:key", h.paramAlias("short_code"), h.Update)
		owned.DELETE("/:key", h.paramAlias("short_code"), h.Delete)
	}

	router.GET("/:short_code", chain(limits.Redirect, h.Redirect)...)
}

// paramAlias exposes the shared :key segment under name so handlers read it by meaning
func (h *LinkHandler) paramAlias(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AddParam(name, c.Param("key"))
		c.Next()
	}
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
