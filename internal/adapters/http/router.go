package http

import (
	"context"

	"github.com/dkeye/demeet/internal/adapters/signal"
	"github.com/dkeye/demeet/internal/app"
	"github.com/dkeye/demeet/internal/app/account"
	"github.com/dkeye/demeet/internal/config"
	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/obs"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Config   *config.Config
	Tokens   AccessVerifier
	Accounts *account.Service
	Meetings core.MeetingStore
	Orch     *app.Orchestrator
	// Google is nil when Google login is not configured.
	Google GoogleProvider
}

func SetupRouter(ctx context.Context, d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Server.Mode == config.ModeDebug {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORS(cfg.Server.CORSOrigin))

	cookies := newCookieWriter(cfg)
	auth := RequireAccess(d.Tokens)
	users := &userHandler{accounts: d.Accounts, cookies: cookies}
	meetings := &meetingHandler{meetings: d.Meetings, orch: d.Orch}
	rooms := &roomHandler{rooms: d.Orch.Rooms}

	r.GET("/metrics", gin.WrapH(obs.Handler()))

	api := r.Group("/api")

	u := api.Group("/users")
	u.POST("/register", users.register)
	u.POST("/login", users.login)
	u.POST("/refreshAccess", users.refreshAccess)
	u.POST("/logout", users.logout)
	u.GET("/me", auth, users.me)
	u.POST("/linkWallet", auth, users.linkWallet)

	if d.Google != nil {
		g := &oauthHandler{provider: d.Google, accounts: d.Accounts, cookies: cookies, successURL: cfg.Google.SuccessURL}
		api.GET("/auth/google", g.start)
		api.GET("/auth/google/callback", g.callback)
	}

	m := api.Group("/meetings", auth)
	m.POST("", meetings.create)
	m.GET("/:id", meetings.get)
	m.POST("/:id/members", meetings.addMember)
	m.PATCH("/:id/settings", meetings.updateSettings)
	m.POST("/:id/end", meetings.end)

	// Room introspection follows the relay auth mode.
	wsAuth := OptionalAccess(d.Tokens)
	if cfg.Relay.RequireAuth {
		wsAuth = auth
	}
	rg := api.Group("/rooms", wsAuth)
	rg.GET("", rooms.list)
	rg.GET("/:id/members", rooms.members)
	ctrl := signal.NewSignalWSController(d.Orch, signal.Options{
		ReadLimit:  cfg.Server.ReadLimit,
		PingPeriod: cfg.Server.PingPeriod,
		PongWait:   cfg.Server.PongWait,
		SendBuffer: cfg.Server.SendBuffer,
		Rate:       cfg.Relay.Rate,
		Burst:      cfg.Relay.Burst,
		Origin:     cfg.Server.CORSOrigin,
	})
	api.GET("/ws/signal", wsAuth, func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c, subjectOf(c))
	})

	log.Info().Str("module", "adapters.http").Bool("google", d.Google != nil).Bool("relay_auth", cfg.Relay.RequireAuth).Msg("router setup")
	return r
}
