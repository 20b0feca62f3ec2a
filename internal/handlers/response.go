package handlers

import (
	"github.com/gin-gonic/gin"
)

// WriteJSONError aborts the request with {"status":"error","error":message}.
func WriteJSONError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status": "error",
		"error":  message,
	})
}
