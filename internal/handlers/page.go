package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IndexTemplate is the name the landing page is registered under.
const IndexTemplate = "index.html"

// Index renders the landing page. The page itself talks to /api/todos.
func Index(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, IndexTemplate, gin.H{
			"Title":   "Todo List",
			"Version": version,
		})
	}
}
