package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/paystub/internal/observability/context"
	"github.com/smallbiznis/paystub/internal/ownercontext"
	"github.com/smallbiznis/paystub/internal/ratelimit"
	"go.uber.org/zap"
)

const contextUserIDKey = "user_id"

// AuthRequired resolves the session cookie and makes the user the owner of
// every client the request touches.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		_, user, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := ownercontext.WithOwner(c.Request.Context(), ownercontext.Owner{
			UserID: user.ID,
			Email:  user.Email,
		})
		ctx = obscontext.WithUserID(ctx, user.ID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextUserIDKey, user.ID.String())
		c.Next()
	}
}

// LoginRateLimit throttles sign-in attempts per client IP.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.limits.AllowLogin(c.Request.Context(), c.ClientIP())
		if err != nil {
			s.log.Warn("login rate limit check failed", zap.Error(err))
		}
		if res != nil && !res.Allowed {
			setRateLimitHeaders(c, res)
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, res *ratelimit.RateLimitResult) {
	if res == nil {
		return
	}
	if res.Limit > 0 {
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	}
	if res.RetryAfter > 0 {
		seconds := int(res.RetryAfter.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
	}
}
