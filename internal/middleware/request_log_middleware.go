package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tadiwos/gojostay/internal/helpers"
	"github.com/tadiwos/gojostay/internal/models"
)

// RequestLoggingMiddleware records every request's source IP and path,
// and rejects requests from blocked addresses. Logging failures never
// fail the request itself.
func RequestLoggingMiddleware(db *gorm.DB, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		ipAddress := c.ClientIP()
		if ipAddress == "" {
			ipAddress = "0.0.0.0"
		}

		var blocked int64
		if err := db.Model(&models.BlockedIP{}).Where("ip_address = ?", ipAddress).Count(&blocked).Error; err != nil {
			logger.Error("blocked IP lookup failed", "ip", ipAddress, "error", err)
		} else if blocked > 0 {
			logger.Warn("blocked request", "ip", ipAddress, "path", c.Request.URL.Path)
			helpers.RespondWithError(c, http.StatusForbidden, "This IP address has been blocked.")
			c.Abort()
			return
		}

		entry := models.RequestLog{
			IPAddress:  ipAddress,
			Path:       c.Request.URL.Path,
			IsRoutable: isRoutable(ipAddress),
		}
		if err := db.Create(&entry).Error; err != nil {
			logger.Error("failed to save request log", "ip", ipAddress, "error", err)
		}

		c.Next()
	}
}

func isRoutable(ipAddress string) bool {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return false
	}
	return !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsLinkLocalUnicast() && !ip.IsUnspecified()
}
