package servehttp

import (
	"approvalflow/domain/workflow"

	"github.com/gin-gonic/gin"
)

// DefinitionCacheFilter binds the workflow definition cache to the request context.
func DefinitionCacheFilter(cache *workflow.DefinitionCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(workflow.WithDefinitionCache(c.Request.Context(), cache))
		c.Next()
	}
}
