package middlewares

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	ctx.Next()
}

// MaintenanceMode answers 503 for every request while MAINTENANCE_MODE=true.
func MaintenanceMode(ctx *gin.Context) {
	if os.Getenv("MAINTENANCE_MODE") == "true" {
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service is under maintenance"})
		return
	}
	ctx.Next()
}
