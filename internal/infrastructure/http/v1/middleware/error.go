package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopstock/internal/core/apperror"
	"shopstock/pkg/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()
		status := http.StatusInternalServerError
		var body ErrorResponse

		if appErr, ok := apperror.AsAppError(err); ok {
			status = appErr.HTTPStatus
			body = ErrorResponse{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error(ctx, "request failed", "code", appErr.Code, "error", err)
				body.Details = withRequestID(body.Details, c)
			case appErr.Err != nil:
				logger.Warn(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
			}
		} else {
			logger.Error(ctx, "unhandled error", "error", err)
			body = ErrorResponse{
				Code:    apperror.CodeInternal,
				Message: "Internal server error",
				Details: withRequestID(nil, c),
			}
		}

		raw, _ := json.Marshal(body)
		CompleteIdempotency(c, status, "application/json", raw)
		c.Data(status, "application/json; charset=utf-8", raw)
	}
}

func withRequestID(details map[string]any, c *gin.Context) map[string]any {
	out := make(map[string]any, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["request_id"] = c.GetString("request_id")
	return out
}
