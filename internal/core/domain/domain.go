package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile is one registered participant. The row is keyed by the session
// handle (SessionID); UserID is the stable human-meaningful identifier that
// peers use to address each other. A stable id may appear on more than one
// session row when a user onboarded from several devices.
type Profile struct {
	SessionID        string
	UserID           string
	Username         string
	Language         string
	IsOnline         bool
	LastSeen         time.Time
	LastOnlineUpdate time.Time
	CreatedAt        time.Time
}

func NewProfile(sessionID string) *Profile {
	now := time.Now()
	return &Profile{
		SessionID:        sessionID,
		UserID:           NewUserID(),
		Username:         "",
		Language:         DefaultLanguage,
		IsOnline:         true,
		LastSeen:         now,
		LastOnlineUpdate: now,
		CreatedAt:        now,
	}
}

const DefaultLanguage = "en"

// NewUserID mints a stable user id. Assigned once at first onboarding,
// immutable thereafter.
func NewUserID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("user_%d_%s", time.Now().UnixMilli(), suffix)
}

// Chat identifies a two-party message stream. Participants carries the two
// session handles authorized on the channel; UserIDs keeps the stable ids for
// reference.
type Chat struct {
	ID            string
	Participants  []string
	UserIDs       []string
	LastMessage   string
	LastSenderID  string
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChannelID derives the conversation channel from the two stable user ids.
// Either party computes the same value independently, no handshake needed.
func ChannelID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return "chat_" + ids[0] + "_" + ids[1]
}

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
)

// Message is one chat entry. TranslatedText is computed once at send time
// against the receiver's language known at that instant and never recomputed.
type Message struct {
	ID             uuid.UUID
	ChatID         string
	SenderID       string
	SenderUsername string
	OriginalText   string
	TranslatedText string
	Type           MessageType
	CreatedAt      time.Time
}

// Friend is a recency bookmark, capped to the 5 most recent contacts.
type Friend struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	LastConnected time.Time `json:"lastConnected"`
}

const RecentContactsCap = 5

// Presence is the hot (Redis-backed) view of a session's liveness.
type Presence struct {
	Online           bool
	LastSeen         time.Time
	LastOnlineUpdate time.Time
}

// PresenceFreshness bounds how old a heartbeat may be before the online flag
// stops being trusted. A crashed tab never sends its teardown signal, so a
// stale flag must not be reported as online indefinitely.
const PresenceFreshness = 2 * time.Minute

// Fresh reports whether the session counts as genuinely online at now.
func (p Presence) Fresh(now time.Time) bool {
	if !p.Online || p.LastOnlineUpdate.IsZero() {
		return false
	}
	return now.Sub(p.LastOnlineUpdate) < PresenceFreshness
}

// Session is the authenticated connection context handed out by anonymous
// sign-in. It bridges the session handle to the stable user identity.
type Session struct {
	SessionID string
	UserID    string
	Username  string
	Language  string
	IsNew     bool
}
