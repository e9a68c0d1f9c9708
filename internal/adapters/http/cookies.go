package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/demeet/internal/config"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/gin-gonic/gin"
)

type cookieWriter struct {
	secure     bool
	sameSite   http.SameSite
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newCookieWriter(cfg *config.Config) cookieWriter {
	return cookieWriter{
		secure:     cfg.Cookie.Secure,
		sameSite:   parseSameSite(cfg.Cookie.SameSite),
		domain:     cfg.Cookie.Domain,
		accessTTL:  cfg.JWT.AccessTTL,
		refreshTTL: cfg.JWT.RefreshTTL,
	}
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (w cookieWriter) set(c *gin.Context, pair domain.TokenPair) {
	c.SetSameSite(w.sameSite)
	c.SetCookie(accessCookie, pair.AccessToken, int(w.accessTTL.Seconds()), "/", w.domain, w.secure, true)
	c.SetCookie(refreshCookie, pair.RefreshToken, int(w.refreshTTL.Seconds()), "/", w.domain, w.secure, true)
}

func (w cookieWriter) clear(c *gin.Context) {
	c.SetSameSite(w.sameSite)
	c.SetCookie(accessCookie, "", -1, "/", w.domain, w.secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", w.domain, w.secure, true)
}
