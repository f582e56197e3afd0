package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

type fakeProfiles struct {
	mu       sync.Mutex
	rows     map[string]domain.Profile // session_id → row
	fetchErr error
}

func newFakeProfiles(rows ...domain.Profile) *fakeProfiles {
	f := &fakeProfiles{rows: make(map[string]domain.Profile)}
	for _, r := range rows {
		f.rows[r.SessionID] = r
	}
	return f
}

func (f *fakeProfiles) GetBySession(_ context.Context, sessionID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	r, ok := f.rows[sessionID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &r, nil
}

func (f *fakeProfiles) Create(_ context.Context, p *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[p.SessionID]; ok {
		return nil
	}
	f.rows[p.SessionID] = *p
	return nil
}

func (f *fakeProfiles) UpdateFields(_ context.Context, sessionID string, username, language *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[sessionID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if username != nil {
		r.Username = *username
	}
	if language != nil {
		r.Language = *language
	}
	f.rows[sessionID] = r
	return nil
}

func (f *fakeProfiles) SetPresence(_ context.Context, sessionID string, online bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[sessionID]
	if !ok {
		return domain.ErrUserNotFound
	}
	r.IsOnline = online
	r.LastSeen = at
	r.LastOnlineUpdate = at
	f.rows[sessionID] = r
	return nil
}

func (f *fakeProfiles) FindByUsername(_ context.Context, username string) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Profile
	for _, r := range f.rows {
		if r.Username == username {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeProfiles) FindByUserID(_ context.Context, userID string) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Profile
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakePresence struct {
	mu      sync.Mutex
	entries map[string]domain.Presence
	getErr  error
}

func newFakePresence() *fakePresence {
	return &fakePresence{entries: make(map[string]domain.Presence)}
}

func (f *fakePresence) Refresh(_ context.Context, sessionID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[sessionID] = domain.Presence{Online: true, LastSeen: now, LastOnlineUpdate: now}
	return nil
}

func (f *fakePresence) MarkOffline(_ context.Context, sessionID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[sessionID]
	e.Online = false
	e.LastSeen = now
	f.entries[sessionID] = e
	return nil
}

func (f *fakePresence) Get(_ context.Context, sessionID string) (domain.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Presence{}, f.getErr
	}
	return f.entries[sessionID], nil
}

type fakeTranslator struct {
	fn    func(ctx context.Context, text, source, target string) (string, error)
	calls int
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.calls++
	if f.fn == nil {
		return text, nil
	}
	return f.fn(ctx, text, source, target)
}

type fakeQueue struct {
	mu        sync.Mutex
	published [][]byte
	deleted   []string
}

func (f *fakeQueue) PublishToStream(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeQueue) SubscribeToStream(context.Context, string, string, func(context.Context, string, []byte) error) error {
	return nil
}

func (f *fakeQueue) AcknowledgeMessage(context.Context, string, string, string) error { return nil }
func (f *fakeQueue) DeleteMessage(context.Context, string, string) error              { return nil }

func (f *fakeQueue) DeleteStream(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, chatID)
	return nil
}

type sentEvent struct {
	sessionID string
	event     any
}

type broadcastEvent struct {
	chatID        string
	senderSession string
	event         any
}

type fakeRegistry struct {
	mu         sync.Mutex
	acks       []domain.AckMessage
	events     []sentEvent
	broadcasts []broadcastEvent
}

func (f *fakeRegistry) Register(contracts.Client)   {}
func (f *fakeRegistry) Unregister(contracts.Client) {}

func (f *fakeRegistry) SendAck(_ context.Context, sessionID string, ack domain.AckMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ack)
}

func (f *fakeRegistry) SendEvent(_ context.Context, sessionID string, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{sessionID: sessionID, event: event})
}

func (f *fakeRegistry) Broadcast(_ context.Context, chatID, senderSession string, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, broadcastEvent{chatID: chatID, senderSession: senderSession, event: event})
}

type fakeRecency struct {
	mu      sync.Mutex
	recents map[string][]domain.Friend
	history map[string][]domain.ChatMessage
	themes  map[string]string
	ops     []string
}

func newFakeRecency() *fakeRecency {
	return &fakeRecency{
		recents: make(map[string][]domain.Friend),
		history: make(map[string][]domain.ChatMessage),
		themes:  make(map[string]string),
	}
}

func (f *fakeRecency) RecentContacts(_ context.Context, ownerID string) ([]domain.Friend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recents[ownerID], nil
}

func (f *fakeRecency) AddRecentContact(_ context.Context, ownerID string, fr domain.Friend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := []domain.Friend{fr}
	for _, prev := range f.recents[ownerID] {
		if prev.ID != fr.ID {
			kept = append(kept, prev)
		}
	}
	if len(kept) > domain.RecentContactsCap {
		kept = kept[:domain.RecentContactsCap]
	}
	f.recents[ownerID] = kept
	return nil
}

func (f *fakeRecency) History(_ context.Context, chatID string) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[chatID], nil
}

func (f *fakeRecency) AppendHistory(_ context.Context, chatID string, msg domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[chatID] = append(f.history[chatID], msg)
	return nil
}

func (f *fakeRecency) ClearHistory(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.history, chatID)
	f.ops = append(f.ops, "clear:"+chatID)
	return nil
}

func (f *fakeRecency) Theme(_ context.Context, ownerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.themes[ownerID]; ok {
		return t, nil
	}
	return "light", nil
}

func (f *fakeRecency) SetTheme(_ context.Context, ownerID, theme string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.themes[ownerID] = theme
	return nil
}

type fakeChats struct {
	mu   sync.Mutex
	rows map[string]domain.Chat
}

func newFakeChats() *fakeChats {
	return &fakeChats{rows: make(map[string]domain.Chat)}
}

func (f *fakeChats) GetChat(_ context.Context, chatID string) (*domain.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[chatID]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	return &c, nil
}

func (f *fakeChats) CreateChat(_ context.Context, c *domain.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[c.ID]; ok {
		return nil
	}
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeChats) UpdateSummary(_ context.Context, chatID, text, senderID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[chatID]
	if !ok {
		return domain.ErrChatNotFound
	}
	c.LastMessage = text
	c.LastSenderID = senderID
	c.LastMessageAt = at
	f.rows[chatID] = c
	return nil
}

type fakeMessages struct {
	mu   sync.Mutex
	rows []domain.Message
}

func (f *fakeMessages) Insert(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMessages) ListByChat(_ context.Context, chatID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.rows {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) DeleteByChat(_ context.Context, chatID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []domain.Message
	var deleted int64
	for _, m := range f.rows {
		if m.ChatID == chatID {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.rows = kept
	return deleted, nil
}

type nopTx struct{}

func (nopTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type failTx struct{}

func (failTx) WithTx(context.Context, func(context.Context) error) error {
	return errors.New("tx failed")
}
