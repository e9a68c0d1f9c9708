package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/demeet/internal/adapters/store/memory"
	"github.com/dkeye/demeet/internal/app"
	"github.com/dkeye/demeet/internal/app/account"
	"github.com/dkeye/demeet/internal/app/token"
	"github.com/dkeye/demeet/internal/config"
	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGoogle struct {
	profile account.GoogleProfile
	err     error
}

func (f fakeGoogle) AuthCodeURL(state string) string { return "https://accounts.test/auth?state=" + state }

func (f fakeGoogle) Exchange(context.Context, string) (account.GoogleProfile, error) {
	return f.profile, f.err
}

type testAPI struct {
	router *gin.Engine
	orch   *app.Orchestrator
}

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close() {}

func newTestAPI(t *testing.T, google GoogleProvider, opts ...func(*config.Config)) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test", PingPeriod: time.Second, PongWait: 2 * time.Second},
		JWT:    config.JWTConfig{AccessSecret: "a", RefreshSecret: "r", AccessTTL: time.Minute, RefreshTTL: time.Hour},
		Cookie: config.CookieConfig{SameSite: "lax"},
		Google: config.GoogleConfig{SuccessURL: "/welcome"},
		Relay:  config.RelayConfig{Rate: 10, Burst: 10},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	identities := memory.NewIdentityStore()
	tokens, err := token.NewService(identities, token.Config{
		AccessSecret: cfg.JWT.AccessSecret, RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL: cfg.JWT.AccessTTL, RefreshTTL: cfg.JWT.RefreshTTL,
	})
	require.NoError(t, err)
	orch := app.NewOrchestrator(app.NewRoomManager(), app.SimplePolicy{}, nil)
	r := SetupRouter(context.Background(), Deps{
		Config:   cfg,
		Tokens:   tokens,
		Accounts: account.NewService(identities, tokens),
		Meetings: memory.NewMeetingStore(),
		Orch:     orch,
		Google:   google,
	})
	return &testAPI{router: r, orch: orch}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func (a *testAPI) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

type session struct {
	User         domain.Identity `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

func (a *testAPI) signup(t *testing.T, email string) session {
	t.Helper()
	w, _ := a.do(t, http.MethodPost, "/api/users/register", "", account.Registration{Name: "User", Email: email, Password: "hunter22"})
	require.Equal(t, http.StatusCreated, w.Code)
	w, env := a.do(t, http.MethodPost, "/api/users/login", "", gin.H{"email": email, "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	var s session
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func TestLoginRefreshReplay(t *testing.T) {
	api := newTestAPI(t, nil)
	s := api.signup(t, "u1@example.com")
	require.NotEmpty(t, s.RefreshToken)

	w, env := api.do(t, http.MethodPost, "/api/users/refreshAccess", "", gin.H{"refreshToken": s.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	var next session
	require.NoError(t, json.Unmarshal(env.Data, &next))
	assert.NotEqual(t, s.RefreshToken, next.RefreshToken)

	w, env = api.do(t, http.MethodPost, "/api/users/refreshAccess", "", gin.H{"refreshToken": s.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
}

func TestLoginSetsCookies(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signup(t, "u1@example.com")

	w, _ := api.do(t, http.MethodPost, "/api/users/login", "", gin.H{"email": "u1@example.com", "password": "hunter22"})

	names := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		names[c.Name] = c
	}
	require.Contains(t, names, accessCookie)
	require.Contains(t, names, refreshCookie)
	assert.True(t, names[refreshCookie].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, names[refreshCookie].SameSite)
}

func TestRegisterDuplicate(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signup(t, "u1@example.com")

	w, _ := api.do(t, http.MethodPost, "/api/users/register", "", account.Registration{Name: "Again", Email: "u1@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(t, http.MethodPost, "/api/users/register", "", gin.H{"email": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeRequiresAccess(t *testing.T) {
	api := newTestAPI(t, nil)
	s := api.signup(t, "u1@example.com")

	w, _ := api.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = api.do(t, http.MethodGet, "/api/users/me", s.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := api.do(t, http.MethodGet, "/api/users/me", s.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me domain.Identity
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "u1@example.com", me.Email)
	assert.NotContains(t, string(env.Data), "hunter22")
}

func TestLogoutRevokes(t *testing.T) {
	api := newTestAPI(t, nil)
	s := api.signup(t, "u1@example.com")

	w, _ := api.do(t, http.MethodPost, "/api/users/logout", s.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, http.MethodPost, "/api/users/refreshAccess", "", gin.H{"refreshToken": s.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLinkWallet(t *testing.T) {
	api := newTestAPI(t, nil)
	a := api.signup(t, "a@example.com")
	b := api.signup(t, "b@example.com")

	w, _ := api.do(t, http.MethodPost, "/api/users/linkWallet", a.AccessToken, gin.H{"walletId": "0xabc"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodPost, "/api/users/linkWallet", b.AccessToken, gin.H{"walletId": "0xabc"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMeetingPermissions(t *testing.T) {
	api := newTestAPI(t, nil)
	host := api.signup(t, "host@example.com")
	member := api.signup(t, "member@example.com")
	stranger := api.signup(t, "stranger@example.com")

	w, env := api.do(t, http.MethodPost, "/api/meetings", host.AccessToken, gin.H{"name": "weekly"})
	require.Equal(t, http.StatusCreated, w.Code)
	var m domain.Meeting
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, []domain.IdentityID{host.User.ID}, m.Host)
	base := "/api/meetings/" + string(m.ID)

	w, _ = api.do(t, http.MethodPost, base+"/members", member.AccessToken, gin.H{"memberId": string(stranger.User.ID)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(t, http.MethodPost, base+"/members", host.AccessToken, gin.H{"memberId": string(member.User.ID)})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, http.MethodGet, base, member.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodGet, base, stranger.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(t, http.MethodPatch, base+"/settings", member.AccessToken, gin.H{"waitingRoomEnabled": false})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = api.do(t, http.MethodPatch, base+"/settings", host.AccessToken, gin.H{"waitingRoomEnabled": false})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, http.MethodPost, base+"/end", member.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = api.do(t, http.MethodPost, base+"/end", host.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodPost, base+"/end", host.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(t, http.MethodGet, "/api/meetings/not-a-uuid", host.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateMeetingValidatesHosts(t *testing.T) {
	api := newTestAPI(t, nil)
	host := api.signup(t, "host@example.com")
	cohost := api.signup(t, "cohost@example.com")

	w, _ := api.do(t, http.MethodPost, "/api/meetings", host.AccessToken, gin.H{"name": "weekly", "host": []string{"not-an-id"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := api.do(t, http.MethodPost, "/api/meetings", host.AccessToken, gin.H{"name": "weekly", "host": []string{string(cohost.User.ID)}})
	require.Equal(t, http.StatusCreated, w.Code)
	var m domain.Meeting
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, []domain.IdentityID{host.User.ID, cohost.User.ID}, m.Host)
}

func TestRoomsIntrospection(t *testing.T) {
	api := newTestAPI(t, nil)

	w, _ := api.do(t, http.MethodGet, "/api/rooms/r1/members", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := api.do(t, http.MethodGet, "/api/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestRoomsRequireAccessWithRelayAuth(t *testing.T) {
	api := newTestAPI(t, nil, func(c *config.Config) { c.Relay.RequireAuth = true })
	s := api.signup(t, "u1@example.com")
	api.orch.Connect("s1", nopConn{}, s.User.ID, func() {})
	require.NoError(t, api.orch.JoinRoom(context.Background(), "s1", "r1", "alice"))

	w, _ := api.do(t, http.MethodGet, "/api/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = api.do(t, http.MethodGet, "/api/rooms/r1/members", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "alice")

	w, env := api.do(t, http.MethodGet, "/api/rooms/r1/members", s.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["alice"]`, string(env.Data))
}

func TestGoogleRoutesNeedProvider(t *testing.T) {
	api := newTestAPI(t, nil)
	w, _ := api.do(t, http.MethodGet, "/api/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGoogleLoginFlow(t *testing.T) {
	api := newTestAPI(t, fakeGoogle{profile: account.GoogleProfile{Subject: "g-1", Email: "g@example.com", Name: "G"}})

	w, _ := api.do(t, http.MethodGet, "/api/auth/google", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	var state *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookie {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.Contains(t, w.Header().Get("Location"), "state="+state.Value)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=c&state=wrong", nil)
	req.AddCookie(state)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=c&state="+state.Value, nil)
	req.AddCookie(state)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))
	var gotAccess bool
	for _, c := range rec.Result().Cookies() {
		gotAccess = gotAccess || (c.Name == accessCookie && c.Value != "")
	}
	assert.True(t, gotAccess)
}

func TestGoogleExchangeFailure(t *testing.T) {
	api := newTestAPI(t, fakeGoogle{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=c&state=s", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s"})
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		domain.ErrUnauthorized: http.StatusUnauthorized,
		domain.ErrForbidden:    http.StatusForbidden,
		domain.ErrNotFound:     http.StatusNotFound,
		domain.ErrConflict:     http.StatusConflict,
		domain.ErrInvalidInput: http.StatusBadRequest,
		errors.New("db down"):  http.StatusInternalServerError,

		errors.Join(domain.ErrInternal, domain.ErrNotFound): http.StatusInternalServerError,
	}
	for err, want := range cases {
		got, _ := statusOf(err)
		assert.Equal(t, want, got, err.Error())
	}
}
