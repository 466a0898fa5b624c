package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

func RespondWithValidationError(c *gin.Context, customMessage string, details any) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   HTTPStatusText(http.StatusBadRequest),
		Message: customMessage,
		Details: details,
	})
}
