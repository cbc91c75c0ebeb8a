package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/core/port"
	"github.com/arklim/account-portal/internal/infra/logger"
	"github.com/arklim/account-portal/internal/transport/http/forms"
)

// LoginRateLimit applies a sliding window per client IP to login submissions.
// The window is trimmed and counted before the attempt is recorded, so the
// request that exceeds the limit is rejected without being counted twice.
// Redis outages fail open: a broken throttle must not lock everyone out.
func LoginRateLimit(store port.RateLimitStore, maxAttempts int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxAttempts <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		identifier := c.ClientIP()
		now := time.Now()

		if err := store.TrimWindow(ctx, identifier, window, now); err != nil {
			log.Warn("rate limit trim failed", zap.Error(err))
			c.Next()
			return
		}

		count, err := store.CountAttempts(ctx, identifier, window, now)
		if err != nil {
			log.Warn("rate limit count failed", zap.Error(err))
			c.Next()
			return
		}

		if count >= maxAttempts {
			retryAfter := window
			if oldest, found, err := store.OldestAttempt(ctx, identifier, window, now); err == nil && found {
				retryAfter = oldest.Add(window).Sub(now)
			}
			if retryAfter < time.Second {
				retryAfter = time.Second
			}

			log.Warn("login throttled",
				zap.String("client_ip", logger.MaskIP(identifier)),
				zap.Int("attempts", count),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.HTML(http.StatusTooManyRequests, "login.tmpl", gin.H{
				"Title":       "Sign in",
				"Form":        forms.LoginForm{},
				"FieldErrors": forms.Errors{},
				"FormError":   "Too many login attempts. Please try again later.",
			})
			c.Abort()
			return
		}

		if err := store.RecordAttempt(ctx, identifier, now); err != nil {
			log.Warn("rate limit record failed", zap.Error(err))
		}

		c.Next()
	}
}
