package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/smakam/globtranslate-claude/internal/app/server/ws"
	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
	"github.com/smakam/globtranslate-claude/internal/core/services"
	"github.com/smakam/globtranslate-claude/internal/platform/logger"
	"github.com/smakam/globtranslate-claude/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ChatWSHandler upgrades a connect request into a live channel session.
type ChatWSHandler struct {
	identity *services.IdentityService
	chat     *services.ChatService
	registry contracts.Registry
}

func NewChatWSHandler(identity *services.IdentityService, chat *services.ChatService, registry contracts.Registry) *ChatWSHandler {
	return &ChatWSHandler{identity: identity, chat: chat, registry: registry}
}

// Serve handles GET /ws?peer_id=...|peer_username=...
//
// After the upgrade the client receives one handshake frame, the cached
// history for instant render, then the authoritative snapshot. Presence
// heartbeats and the peer watcher run for the life of the socket.
func (h *ChatWSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	sessionID, _ := r.Context().Value(middleware.SessionIDKey).(string)

	profile, err := h.identity.CurrentProfile(r.Context(), sessionID)
	if err != nil {
		jsonResponse(w, http.StatusUnauthorized, payload{Success: false, Message: "unknown session"})
		return
	}
	sess := domain.Session{
		SessionID: sessionID,
		UserID:    profile.UserID,
		Username:  profile.Username,
		Language:  profile.Language,
	}

	peerID := r.URL.Query().Get("peer_id")
	peerUsername := r.URL.Query().Get("peer_username")
	cs, err := h.chat.Connect(r.Context(), sess, peerID, peerUsername)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrPeerUnresolved) {
			status = http.StatusNotFound
		}
		jsonResponse(w, status, payload{Success: false, Message: "connect failed"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "chat ws - upgrade failed", "chat_id", cs.ChatID, "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	socket := ws.NewWebSocket(ctx, conn)
	client := ws.NewClient(ctx, socket, sessionID, cs.ChatID)

	h.registry.Register(client)
	defer func() {
		h.registry.Unregister(client)
		client.Close()
		cancel()
		log.InfoContext(ctx, "chat ws - disconnected", "chat_id", cs.ChatID, "session_id", sessionID)
	}()

	peerOnline, _ := cs.PeerOnline()
	h.send(ctx, client, domain.HandshakeResponse{
		Type:         domain.TypeHandshake,
		ChatID:       cs.ChatID,
		UserID:       sess.UserID,
		PeerID:       cs.PeerID,
		PeerUsername: cs.PeerUsername,
		PeerLanguage: cs.PeerLanguage(),
		PeerOnline:   peerOnline,
	})

	cached, authoritative, err := h.chat.History(ctx, cs.ChatID)
	if err != nil {
		log.ErrorContext(ctx, "chat ws - history load failed", "chat_id", cs.ChatID, "err", err)
	}
	for _, snap := range historySnapshots(cs.ChatID, cached, authoritative) {
		h.send(ctx, client, snap)
	}

	go h.identity.RunHeartbeat(ctx, sessionID)
	go h.chat.WatchPeer(ctx, cs)

	socket.ReadLoop(func(data []byte) {
		var frame domain.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.send(ctx, client, domain.ErrorMessage{Type: domain.TypeError, Code: "bad_frame", Message: "malformed frame"})
			return
		}
		switch frame.Type {
		case domain.TypeMessage:
			if err := h.chat.SendMessage(ctx, cs, frame.ClientMsgID, frame.Text, domain.MessageType(frame.MsgType)); err != nil {
				code := "send_failed"
				if errors.Is(err, domain.ErrEmptyMessage) {
					code = "empty_message"
				}
				h.send(ctx, client, domain.ErrorMessage{Type: domain.TypeError, Code: code, Message: "message not accepted"})
			}
		case domain.TypeClear:
			if err := h.chat.ClearChat(ctx, cs); err != nil {
				h.send(ctx, client, domain.ErrorMessage{Type: domain.TypeError, Code: "clear_failed", Message: "history delete failed"})
			}
		default:
			h.send(ctx, client, domain.ErrorMessage{Type: domain.TypeError, Code: "unknown_type", Message: "unsupported frame type"})
		}
	})
}

// historySnapshots builds the connect-time history frames: the cached view
// first when there is one, then the store view which replaces it wholesale.
// The store snapshot is always sent, empty included, so the client knows the
// authoritative state arrived.
func historySnapshots(chatID string, cached []domain.ChatMessage, authoritative []domain.Message) []domain.HistorySnapshot {
	frames := make([]domain.HistorySnapshot, 0, 2)
	if len(cached) > 0 {
		frames = append(frames, domain.HistorySnapshot{
			Type:     domain.TypeHistory,
			ChatID:   chatID,
			Source:   domain.SnapshotCache,
			Messages: cached,
		})
	}
	store := make([]domain.ChatMessage, 0, len(authoritative))
	for i := range authoritative {
		store = append(store, authoritative[i].Event())
	}
	frames = append(frames, domain.HistorySnapshot{
		Type:     domain.TypeHistory,
		ChatID:   chatID,
		Source:   domain.SnapshotStore,
		Messages: store,
	})
	return frames
}

func (h *ChatWSHandler) send(ctx context.Context, client contracts.Client, event any) {
	data, _ := json.Marshal(event)
	_ = client.Send(ctx, data)
}
