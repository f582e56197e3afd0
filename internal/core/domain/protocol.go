package domain

import "time"

const (
	TypeHandshake = "handshake"
	TypeHistory   = "history"
	TypeMessage   = "message"
	TypeAck       = "ack"
	TypePresence  = "presence"
	TypeLanguage  = "language"
	TypeClear     = "clear"
	TypeCleared   = "cleared"
	TypeError     = "error"
)

type AckStatus string

const (
	AckServerReceived AckStatus = "server_received"
	AckPersisted      AckStatus = "persisted"
)

// HandshakeResponse is sent once after the websocket upgrade.
type HandshakeResponse struct {
	Type         string `json:"type"` // "handshake"
	ChatID       string `json:"chat_id"`
	UserID       string `json:"user_id"`
	PeerID       string `json:"peer_id"`
	PeerUsername string `json:"peer_username"`
	PeerLanguage string `json:"peer_language"`
	PeerOnline   bool   `json:"peer_online"`
}

const (
	SnapshotCache = "cache"
	SnapshotStore = "store"
)

// HistorySnapshot carries a channel's full history in one frame. On connect
// the cache snapshot arrives first for instant render; the store snapshot
// that follows replaces it wholesale, so no message is delivered twice as an
// individual frame.
type HistorySnapshot struct {
	Type     string        `json:"type"` // "history"
	ChatID   string        `json:"chat_id"`
	Source   string        `json:"source"` // "cache" | "store"
	Messages []ChatMessage `json:"messages"`
}

// ClientFrame is the inbound envelope read off the socket.
type ClientFrame struct {
	Type        string `json:"type"` // "message" | "clear"
	ClientMsgID string `json:"client_msg_id,omitempty"`
	Text        string `json:"text,omitempty"`
	MsgType     string `json:"msg_type,omitempty"` // "text" | "voice"
}

// MessagePayload is the queued form of an accepted message, between the
// ingest path and the persistence worker.
type MessagePayload struct {
	ClientMsgID    string      `json:"client_msg_id"`
	ChatID         string      `json:"chat_id"`
	SenderID       string      `json:"sender_id"`
	SenderSession  string      `json:"sender_session"`
	SenderUsername string      `json:"sender_username"`
	PeerID         string      `json:"peer_id"`
	PeerSession    string      `json:"peer_session"`
	OriginalText   string      `json:"original_text"`
	TranslatedText string      `json:"translated_text"`
	Type           MessageType `json:"msg_type"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ChatMessage is broadcast to channel subscribers.
type ChatMessage struct {
	Type           string    `json:"type"` // "message"
	ID             string    `json:"id"`
	ChatID         string    `json:"chat_id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	MsgType        string    `json:"msg_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// AckMessage is sent only to the sender.
type AckMessage struct {
	Type        string    `json:"type"` // "ack"
	ClientMsgID string    `json:"client_msg_id"`
	Status      AckStatus `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// PresenceEvent reports the peer's liveness to one side of the channel.
type PresenceEvent struct {
	Type     string     `json:"type"` // "presence"
	PeerID   string     `json:"peer_id"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// LanguageEvent reports a peer language change. Applied last-write-wins.
type LanguageEvent struct {
	Type     string `json:"type"` // "language"
	PeerID   string `json:"peer_id"`
	Language string `json:"language"`
}

// ClearedEvent notifies the channel that its history was cleared.
type ClearedEvent struct {
	Type   string `json:"type"` // "cleared"
	ChatID string `json:"chat_id"`
	ByID   string `json:"by_id"`
}

// ErrorMessage is the WS-safe error envelope.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event converts a stored message into its broadcast form.
func (m *Message) Event() ChatMessage {
	return ChatMessage{
		Type:           TypeMessage,
		ID:             m.ID.String(),
		ChatID:         m.ChatID,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		OriginalText:   m.OriginalText,
		TranslatedText: m.TranslatedText,
		MsgType:        string(m.Type),
		CreatedAt:      m.CreatedAt,
	}
}
