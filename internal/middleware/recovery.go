package middleware

import (
	"net/http"

	apperrors "github.com/JHMR18/truck-drive/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery creates a panic recovery middleware. Panics answer with the
// same error envelope the backend uses, so admin endpoint consumers
// parse one shape everywhere.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"errors": []gin.H{
						{
							"message": "Internal server error",
							"extensions": gin.H{
								"code": apperrors.ErrCodeInternalError,
							},
						},
					},
				})
			}
		}()

		c.Next()
	}
}
