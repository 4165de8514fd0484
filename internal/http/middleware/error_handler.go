package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skillmarket/escrow-backend/internal/dto"
	"github.com/skillmarket/escrow-backend/internal/logger"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Маскирует внутренние ошибки и возвращает понятные сообщения клиенту.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if logger.Log != nil {
			entry := logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			})
			if apperror.IsIntegrity(err) {
				entry.Error("Integrity failure")
			} else {
				entry.Error("Request error")
			}
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			resp := dto.ErrorResponse{
				Error: appErr.Message,
				Code:  string(appErr.Code),
			}
			if appErr.Code == apperror.ErrCodeConflict {
				resp.CurrentState = appErr.CurrentState
			}
			if appErr.Code == apperror.ErrCodeIntegrity || appErr.Code == apperror.ErrCodeInternal {
				resp.Error = "внутренняя ошибка сервера"
			}
			c.JSON(appErr.HTTPStatus, resp)
			return
		}

		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "внутренняя ошибка сервера",
			Code:  string(apperror.ErrCodeInternal),
		})
	}
}
