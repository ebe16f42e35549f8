package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceName identifies the API in health and root responses.
const ServiceName = "Herbario API"

// Version is the reported API version.
const Version = "0.1.0"

// Health reports service liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": ServiceName})
}

// Root describes the API at its root path.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": ServiceName, "version": Version})
}
