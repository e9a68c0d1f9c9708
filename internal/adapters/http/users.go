package http

import (
	"net/http"

	"github.com/dkeye/demeet/internal/app/account"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/gin-gonic/gin"
)

type userHandler struct {
	accounts *account.Service
	cookies  cookieWriter
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type walletRequest struct {
	WalletID string `json:"walletId" binding:"required"`
}

type sessionResponse struct {
	User *domain.Identity `json:"user,omitempty"`
	domain.TokenPair
}

func (h *userHandler) register(c *gin.Context) {
	var req account.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	identity, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "user registered", identity)
}

func (h *userHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	pair, identity, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.cookies.set(c, pair)
	respond(c, http.StatusOK, "logged in", sessionResponse{User: identity, TokenPair: pair})
}

// refreshAccess takes the refresh token from its cookie or from the body.
func (h *userHandler) refreshAccess(c *gin.Context) {
	presented, _ := c.Cookie(refreshCookie)
	if presented == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		presented = req.RefreshToken
	}
	if presented == "" {
		fail(c, domain.ErrUnauthorized)
		return
	}
	pair, err := h.accounts.Refresh(c.Request.Context(), presented)
	if err != nil {
		h.cookies.clear(c)
		fail(c, err)
		return
	}
	h.cookies.set(c, pair)
	respond(c, http.StatusOK, "access token refreshed", sessionResponse{TokenPair: pair})
}

func (h *userHandler) logout(c *gin.Context) {
	err := h.accounts.Logout(c.Request.Context(), accessToken(c))
	h.cookies.clear(c)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "logged out", nil)
}

func (h *userHandler) me(c *gin.Context) {
	identity, err := h.accounts.Me(c.Request.Context(), subjectOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "current user", identity)
}

func (h *userHandler) linkWallet(c *gin.Context) {
	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	identity, err := h.accounts.LinkWallet(c.Request.Context(), subjectOf(c), req.WalletID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "wallet linked", identity)
}
