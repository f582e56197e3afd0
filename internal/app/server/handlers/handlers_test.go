package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
	"github.com/smakam/globtranslate-claude/internal/core/services"
	"github.com/smakam/globtranslate-claude/pkg/middleware"
)

type memProfiles struct {
	mu   sync.Mutex
	rows map[string]domain.Profile
}

func (m *memProfiles) GetBySession(_ context.Context, sessionID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[sessionID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &r, nil
}

func (m *memProfiles) Create(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.SessionID]; !ok {
		m.rows[p.SessionID] = *p
	}
	return nil
}

func (m *memProfiles) UpdateFields(_ context.Context, sessionID string, username, language *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[sessionID]
	if username != nil {
		r.Username = *username
	}
	if language != nil {
		r.Language = *language
	}
	m.rows[sessionID] = r
	return nil
}

func (m *memProfiles) SetPresence(_ context.Context, sessionID string, online bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[sessionID]
	r.IsOnline = online
	r.LastSeen = at
	r.LastOnlineUpdate = at
	m.rows[sessionID] = r
	return nil
}

func (m *memProfiles) FindByUsername(_ context.Context, username string) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Profile
	for _, r := range m.rows {
		if r.Username == username {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memProfiles) FindByUserID(_ context.Context, userID string) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Profile
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memPresence struct {
	mu      sync.Mutex
	entries map[string]domain.Presence
}

func (m *memPresence) Refresh(_ context.Context, sessionID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sessionID] = domain.Presence{Online: true, LastSeen: now, LastOnlineUpdate: now}
	return nil
}

func (m *memPresence) MarkOffline(_ context.Context, sessionID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[sessionID]
	e.Online = false
	e.LastSeen = now
	m.entries[sessionID] = e
	return nil
}

func (m *memPresence) Get(_ context.Context, sessionID string) (domain.Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[sessionID], nil
}

type memRecency struct {
	mu      sync.Mutex
	recents map[string][]domain.Friend
	themes  map[string]string
}

func (m *memRecency) RecentContacts(_ context.Context, ownerID string) ([]domain.Friend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recents[ownerID], nil
}

func (m *memRecency) AddRecentContact(_ context.Context, ownerID string, f domain.Friend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := []domain.Friend{f}
	for _, prev := range m.recents[ownerID] {
		if prev.ID != f.ID {
			kept = append(kept, prev)
		}
	}
	if len(kept) > domain.RecentContactsCap {
		kept = kept[:domain.RecentContactsCap]
	}
	m.recents[ownerID] = kept
	return nil
}

func (m *memRecency) History(context.Context, string) ([]domain.ChatMessage, error)    { return nil, nil }
func (m *memRecency) AppendHistory(context.Context, string, domain.ChatMessage) error { return nil }
func (m *memRecency) ClearHistory(context.Context, string) error                      { return nil }

func (m *memRecency) Theme(_ context.Context, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.themes[ownerID]; ok {
		return t, nil
	}
	return "light", nil
}

func (m *memRecency) SetTheme(_ context.Context, ownerID, theme string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themes[ownerID] = theme
	return nil
}

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type apiFixture struct {
	mux      *http.ServeMux
	tokenSvc *services.TokenService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	profiles := &memProfiles{rows: make(map[string]domain.Profile)}
	presence := &memPresence{entries: make(map[string]domain.Presence)}
	cache := &memRecency{recents: make(map[string][]domain.Friend), themes: make(map[string]string)}

	directory := services.NewDirectoryService(log, profiles, presence)
	identity := services.NewIdentityService(log, profiles, presence, directory, passTx{})
	tokenSvc := services.NewTokenService("test-secret")

	authHandler := NewAuthHandler(identity, tokenSvc)
	userHandler := NewUserHandler(identity, directory, cache)
	auth := middleware.AuthMiddleware(tokenSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/anonymous", authHandler.SignInAnonymous)
	mux.Handle("GET /api/users/lookup", auth(http.HandlerFunc(userHandler.Lookup)))
	mux.Handle("GET /api/users/me", auth(http.HandlerFunc(userHandler.Me)))
	mux.Handle("PATCH /api/users/me", auth(http.HandlerFunc(userHandler.UpdateMe)))
	mux.Handle("DELETE /api/users/me/session", auth(http.HandlerFunc(userHandler.SignOut)))
	mux.Handle("GET /api/users/me/qr", auth(http.HandlerFunc(userHandler.QRCode)))
	mux.Handle("GET /api/prefs/theme", auth(http.HandlerFunc(userHandler.Theme)))
	mux.Handle("PUT /api/prefs/theme", auth(http.HandlerFunc(userHandler.SetTheme)))

	return &apiFixture{mux: mux, tokenSvc: tokenSvc}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) signIn(t *testing.T) (token, userID string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/anonymous", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Token  string `json:"token"`
			UserID string `json:"userId"`
			IsNew  bool   `json:"isNew"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Success)
	require.True(t, out.Data.IsNew)
	return out.Data.Token, out.Data.UserID
}

func TestOnboardingFlow(t *testing.T) {
	f := newAPIFixture(t)
	token, userID := f.signIn(t)

	rec := f.do(t, http.MethodPatch, "/api/users/me", token, map[string]string{"username": "alice", "language": "es"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data profileView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, userID, out.Data.ID)
	require.Equal(t, "alice", out.Data.Username)
	require.Equal(t, "es", out.Data.Language)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsernameConflictIs409(t *testing.T) {
	f := newAPIFixture(t)
	tokenA, _ := f.signIn(t)
	tokenB, _ := f.signIn(t)

	rec := f.do(t, http.MethodPatch, "/api/users/me", tokenA, map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/users/me", tokenB, map[string]string{"username": "alice"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLookupByUsernameAndID(t *testing.T) {
	f := newAPIFixture(t)
	tokenA, userA := f.signIn(t)
	tokenB, _ := f.signIn(t)

	rec := f.do(t, http.MethodPatch, "/api/users/me", tokenA, map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/lookup?username=alice", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data profileView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, userA, out.Data.ID)

	rec = f.do(t, http.MethodGet, "/api/users/lookup?id="+userA, tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/lookup?username=ghost", tokenB, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/lookup", tokenB, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQRCodeIsPNG(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.signIn(t)

	rec := f.do(t, http.MethodGet, "/api/users/me/qr", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "\x89PNG", rec.Body.String()[:4])
}

func TestThemeRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.signIn(t)

	rec := f.do(t, http.MethodGet, "/api/prefs/theme", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"light"`)

	rec = f.do(t, http.MethodPut, "/api/prefs/theme", token, map[string]string{"theme": "dark"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/prefs/theme", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"dark"`)
}
