package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopstock/internal/core/apperror"
	appctx "shopstock/internal/core/context"
	"shopstock/internal/infrastructure/storage/postgres"
	"shopstock/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
	ctxIdempotencyDone  = "idempotency_done"
)

// IdempotencyStore persists X-Idempotency-Key state.
// *postgres.IdempotencyStore implements it.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
	ReleaseKey(ctx context.Context, key string) error
}

var _ IdempotencyStore = (*postgres.IdempotencyStore)(nil)

// Idempotency middleware protects against duplicate requests.
// A retried sale with the same key and body gets the first response back
// instead of deducting stock twice.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		// The concrete path keeps DELETE /sales/a and DELETE /sales/b apart.
		operation := c.Request.Method + " " + c.Request.URL.Path

		ctx := c.Request.Context()
		replay, err := store.AcquireKey(ctx, key, appctx.GetUserID(ctx), operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
				c.Abort()
				return
			}
			_ = c.Error(apperror.NewDependencyUnavailable("idempotency", err))
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)

		c.Next()

		// Errors are stored by ErrorHandler once it renders them. Anything else
		// that left the key pending (a streamed body, a panic) releases it so
		// the client can retry.
		pendingError := len(c.Errors) > 0 && !c.Writer.Written()
		if !c.GetBool(ctxIdempotencyDone) && !pendingError {
			if err := store.ReleaseKey(context.WithoutCancel(ctx), key); err != nil {
				logger.Warn(ctx, "release idempotency key failed", "key", key, "error", err)
			}
		}
	}
}

// CompleteIdempotency stores the response written for the request's key.
// It is a no-op when the request carries no key. Server errors release the
// key instead: the operation rolled back, so a retry must run again.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, body []byte) {
	key, ok := c.Get(ctxIdempotencyKey)
	if !ok || c.GetBool(ctxIdempotencyDone) {
		return
	}
	s, ok := c.Get(ctxIdempotencyStore)
	if !ok {
		return
	}
	store := s.(IdempotencyStore)
	c.Set(ctxIdempotencyDone, true)

	ctx := context.WithoutCancel(c.Request.Context())
	var err error
	switch {
	case statusCode >= http.StatusInternalServerError:
		err = store.ReleaseKey(ctx, key.(string))
	case statusCode >= http.StatusBadRequest:
		err = store.FailKey(ctx, key.(string), statusCode, contentType, body)
	default:
		err = store.CompleteKey(ctx, key.(string), statusCode, contentType, body)
	}
	if err != nil {
		logger.Warn(ctx, "store idempotent response failed", "key", key, "error", err)
	}
}
