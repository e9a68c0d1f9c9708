package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/dkeye/demeet/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	claimsKey     = "claims"
)

type AccessVerifier interface {
	VerifyAccess(ctx context.Context, raw string) (domain.Claims, error)
}

// accessToken reads the cookie, then the Bearer header, then ?token=.
func accessToken(c *gin.Context) string {
	if v, err := c.Cookie(accessCookie); err == nil && v != "" {
		return v
	}
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return c.Query("token")
}

func RequireAccess(v AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.VerifyAccess(c.Request.Context(), accessToken(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAccess attaches claims when a valid token is present and lets the
// request through otherwise.
func OptionalAccess(v AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := accessToken(c); raw != "" {
			if claims, err := v.VerifyAccess(c.Request.Context(), raw); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) (domain.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return domain.Claims{}, false
	}
	claims, ok := v.(domain.Claims)
	return claims, ok
}

func subjectOf(c *gin.Context) domain.IdentityID {
	claims, _ := claimsFrom(c)
	return claims.Subject
}

// CORS allows one configured origin with credentials.
func CORS(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin != "" && c.GetHeader("Origin") == origin {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			h.Set("Access-Control-Max-Age", "600")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
