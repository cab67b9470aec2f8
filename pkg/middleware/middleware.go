package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/auth"
	"github.com/ksred/coinkong/pkg/response"
)

const (
	// UserHeader carries the chat user the gateway is acting for
	UserHeader = "X-User-ID"

	ContextClientID = "clientID"
	ContextUserID   = "userID"
)

// TokenValidator is satisfied by *auth.Service
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// JWTAuth verifies the gateway's bearer token
func JWTAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			response.Unauthorized(c, "Bearer authorization header required")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("component", "http").Msg("rejected gateway token")
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		c.Set(ContextClientID, claims.ClientID)
		c.Next()
	}
}

// ActingUser requires the X-User-ID header and stores it in the context
func ActingUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID == "" {
			response.BadRequest(c, UserHeader+" header is required")
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the acting user set by ActingUser
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// RequestLogger logs every request once it has been served
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		}
		event.
			Str("component", "http").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_id", c.GetString(ContextClientID)).
			Str("user_id", c.GetString(ContextUserID)).
			Msg("request served")
	}
}
