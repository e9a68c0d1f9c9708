package http

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/dkeye/demeet/internal/app/account"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const stateCookie = "oauth_state"

// GoogleProvider is the OIDC side of Google login.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (account.GoogleProfile, error)
}

type oauthHandler struct {
	provider   GoogleProvider
	accounts   *account.Service
	cookies    cookieWriter
	successURL string
}

func (h *oauthHandler) start(c *gin.Context) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		fail(c, domain.ErrInternal)
		return
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 300, "/", h.cookies.domain, h.cookies.secure, true)
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

func (h *oauthHandler) callback(c *gin.Context) {
	want, _ := c.Cookie(stateCookie)
	c.SetCookie(stateCookie, "", -1, "/", h.cookies.domain, h.cookies.secure, true)
	if want == "" || c.Query("state") != want {
		fail(c, domain.ErrInvalidInput)
		return
	}
	code := c.Query("code")
	if code == "" {
		fail(c, domain.ErrInvalidInput)
		return
	}
	profile, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("google exchange failed")
		fail(c, domain.ErrUnauthorized)
		return
	}
	pair, _, err := h.accounts.GoogleLogin(c.Request.Context(), profile)
	if err != nil {
		fail(c, err)
		return
	}
	h.cookies.set(c, pair)
	c.Redirect(http.StatusFound, h.successURL)
}
