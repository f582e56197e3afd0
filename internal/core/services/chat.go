package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

var tracer = otel.Tracer("chat-service")

const (
	peerPollInterval  = 15 * time.Second
	peerRetryAttempts = 3
)

// ChatSession is the live state of one side of a conversation: the derived
// channel id plus the peer view the watcher keeps current. The peer language
// is applied last-write-wins; comparing old and new values under concurrent
// updates reads stale, so there is no diffing.
type ChatSession struct {
	ChatID       string
	Local        domain.Session
	PeerID       string
	PeerUsername string
	PeerSession  string

	mu           sync.Mutex
	peerLanguage string
	peerOnline   bool
	peerLastSeen time.Time
}

func (cs *ChatSession) PeerLanguage() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.peerLanguage == "" {
		return domain.DefaultLanguage
	}
	return cs.peerLanguage
}

func (cs *ChatSession) setPeerLanguage(lang string) {
	cs.mu.Lock()
	cs.peerLanguage = lang
	cs.mu.Unlock()
}

func (cs *ChatSession) PeerOnline() (bool, time.Time) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.peerOnline, cs.peerLastSeen
}

func (cs *ChatSession) setPeerPresence(online bool, lastSeen time.Time) {
	cs.mu.Lock()
	cs.peerOnline = online
	if !lastSeen.IsZero() {
		cs.peerLastSeen = lastSeen
	}
	cs.mu.Unlock()
}

// ChatService establishes conversation channels, moves messages through the
// translation pipeline and keeps each side's peer view fresh.
type ChatService struct {
	log         *slog.Logger
	chats       domain.ChatRepository
	directory   *DirectoryService
	translation *TranslationService
	messages    *MessageService
	cache       contracts.RecencyStore
	registry    contracts.Registry
	tx          contracts.TxRunner
}

func NewChatService(
	log *slog.Logger,
	chats domain.ChatRepository,
	directory *DirectoryService,
	translation *TranslationService,
	messages *MessageService,
	cache contracts.RecencyStore,
	registry contracts.Registry,
	tx contracts.TxRunner,
) *ChatService {
	return &ChatService{
		log:         log,
		chats:       chats,
		directory:   directory,
		translation: translation,
		messages:    messages,
		cache:       cache,
		registry:    registry,
		tx:          tx,
	}
}

// Connect resolves the peer, derives the channel and ensures its metadata
// row exists. Channel creation needs the peer's current session handle; if
// the peer cannot be resolved the connect fails outright.
func (s *ChatService) Connect(ctx context.Context, sess domain.Session, peerID, peerUsername string) (*ChatSession, error) {
	ctx, span := tracer.Start(ctx, "ChatService.Connect", trace.WithAttributes(
		attribute.String("user.id", sess.UserID),
		attribute.String("peer.id", peerID),
	))
	defer span.End()

	var peer *domain.Profile
	var err error
	switch {
	case peerID != "":
		peer, err = s.directory.FindByUserID(ctx, peerID)
	case peerUsername != "":
		peer, err = s.directory.FindByUsername(ctx, peerUsername)
	default:
		err = domain.ErrPeerUnresolved
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "peer resolution failed")
		s.log.ErrorContext(ctx, "chat - connect - peer resolution failed", "peer_id", peerID, "peer_username", peerUsername, "err", err)
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrPeerUnresolved
		}
		return nil, err
	}

	chatID := domain.ChannelID(sess.UserID, peer.UserID)
	span.SetAttributes(attribute.String("chat.id", chatID))

	if err := s.ensureChat(ctx, chatID, sess, peer); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ensure chat failed")
		s.log.ErrorContext(ctx, "chat - connect - ensure chat failed", "chat_id", chatID, "err", err)
		return nil, err
	}

	if err := s.cache.AddRecentContact(ctx, sess.UserID, domain.Friend{
		ID:            peer.UserID,
		Username:      peer.Username,
		LastConnected: time.Now(),
	}); err != nil {
		s.log.ErrorContext(ctx, "chat - connect - record recent contact failed", "chat_id", chatID, "err", err)
	}

	cs := &ChatSession{
		ChatID:       chatID,
		Local:        sess,
		PeerID:       peer.UserID,
		PeerUsername: peer.Username,
		PeerSession:  peer.SessionID,
	}
	cs.setPeerLanguage(peer.Language)
	cs.setPeerPresence(peer.IsOnline, peer.LastSeen)
	span.SetStatus(codes.Ok, "connected")
	s.log.InfoContext(ctx, "chat - connect - success", "chat_id", chatID, "user_id", sess.UserID, "peer_id", peer.UserID)
	return cs, nil
}

func (s *ChatService) ensureChat(ctx context.Context, chatID string, sess domain.Session, peer *domain.Profile) error {
	_, err := s.chats.GetChat(ctx, chatID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrChatNotFound) {
		return err
	}
	return s.tx.WithTx(ctx, func(txCtx context.Context) error {
		return s.chats.CreateChat(txCtx, &domain.Chat{
			ID:           chatID,
			Participants: []string{sess.SessionID, peer.SessionID},
			UserIDs:      []string{sess.UserID, peer.UserID},
		})
	})
}

// History returns the cached channel view for instant display followed by
// the authoritative list; the caller delivers the cached frame first.
func (s *ChatService) History(ctx context.Context, chatID string) (cached []domain.ChatMessage, authoritative []domain.Message, err error) {
	cached, cacheErr := s.cache.History(ctx, chatID)
	if cacheErr != nil {
		s.log.ErrorContext(ctx, "chat - history - cache read failed", "chat_id", chatID, "err", cacheErr)
	}
	authoritative, err = s.messages.GetMessages(ctx, chatID)
	return cached, authoritative, err
}

// WatchPeer keeps the peer view of a session current for the lifetime of
// ctx, pushing presence and language events to the owning client. Peer
// resolution is retried up to 3 times with a linearly growing delay
// (attempt n waits 2n seconds); after that the watcher falls back to a
// default view (language "en", offline) and keeps polling.
func (s *ChatService) WatchPeer(ctx context.Context, cs *ChatSession) {
	if !s.refreshPeerWithRetry(ctx, cs) {
		cs.setPeerLanguage(domain.DefaultLanguage)
		cs.setPeerPresence(false, time.Time{})
		s.pushPeerState(ctx, cs)
	}
	ticker := time.NewTicker(peerPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("chat - watch peer - stopped", "chat_id", cs.ChatID, "peer_id", cs.PeerID)
			return
		case <-ticker.C:
			if !s.refreshPeerWithRetry(ctx, cs) {
				cs.setPeerPresence(false, time.Time{})
				s.pushPeerState(ctx, cs)
			}
		}
	}
}

func (s *ChatService) refreshPeerWithRetry(ctx context.Context, cs *ChatSession) bool {
	for attempt := 1; attempt <= peerRetryAttempts; attempt++ {
		peer, err := s.directory.FindByUserID(ctx, cs.PeerID)
		if err == nil {
			cs.PeerSession = peer.SessionID
			cs.setPeerLanguage(peer.Language)
			cs.setPeerPresence(peer.IsOnline, peer.LastSeen)
			s.pushPeerState(ctx, cs)
			return true
		}
		s.log.ErrorContext(ctx, "chat - watch peer - resolve failed", "chat_id", cs.ChatID, "peer_id", cs.PeerID, "attempt", attempt, "err", err)
		if attempt == peerRetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(2*attempt) * time.Second):
		}
	}
	return false
}

func (s *ChatService) pushPeerState(ctx context.Context, cs *ChatSession) {
	online, lastSeen := cs.PeerOnline()
	ev := domain.PresenceEvent{
		Type:   domain.TypePresence,
		PeerID: cs.PeerID,
		Online: online,
	}
	if !lastSeen.IsZero() {
		ev.LastSeen = &lastSeen
	}
	s.registry.SendEvent(ctx, cs.Local.SessionID, ev)
	s.registry.SendEvent(ctx, cs.Local.SessionID, domain.LanguageEvent{
		Type:     domain.TypeLanguage,
		PeerID:   cs.PeerID,
		Language: cs.PeerLanguage(),
	})
}

// SendMessage translates the text into the peer's currently-known language
// and hands it to the accept path. A degraded or failed translation sends
// the original text as both fields; the send never blocks on translation.
func (s *ChatService) SendMessage(ctx context.Context, cs *ChatSession, clientMsgID, text string, msgType domain.MessageType) error {
	ctx, span := tracer.Start(ctx, "ChatService.SendMessage", trace.WithAttributes(
		attribute.String("chat.id", cs.ChatID),
		attribute.String("user.id", cs.Local.UserID),
		attribute.Int("payload_size", len(text)),
	))
	defer span.End()
	if text == "" {
		span.RecordError(domain.ErrEmptyMessage)
		return domain.ErrEmptyMessage
	}
	if msgType == "" {
		msgType = domain.MessageText
	}

	translated := text
	res, err := s.translation.Translate(ctx, text, cs.Local.Language, cs.PeerLanguage())
	switch {
	case err != nil:
		// Pre-flight rejection (credential, rate limit): the message
		// still goes out untranslated.
		span.RecordError(err)
		s.log.WarnContext(ctx, "chat - send message - translation rejected, sending original", "chat_id", cs.ChatID, "err", err)
	case res.Degraded:
		span.SetAttributes(attribute.Bool("translation.degraded", true))
		translated = res.Text
	default:
		translated = res.Text
	}

	payload := domain.MessagePayload{
		ClientMsgID:    clientMsgID,
		ChatID:         cs.ChatID,
		SenderID:       cs.Local.UserID,
		SenderSession:  cs.Local.SessionID,
		SenderUsername: cs.Local.Username,
		PeerID:         cs.PeerID,
		PeerSession:    cs.PeerSession,
		OriginalText:   text,
		TranslatedText: translated,
		Type:           msgType,
		CreatedAt:      time.Now(),
	}
	if err := s.messages.AcceptMessage(ctx, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "accept message failed")
		return err
	}
	span.SetStatus(codes.Ok, "accepted")
	return nil
}

// ClearChat empties the cached history synchronously first so the channel
// reads empty immediately, then deletes the stored rows. A storage failure
// is reported but does not resurrect the cleared cache.
func (s *ChatService) ClearChat(ctx context.Context, cs *ChatSession) error {
	ctx, span := tracer.Start(ctx, "ChatService.ClearChat", trace.WithAttributes(
		attribute.String("chat.id", cs.ChatID),
	))
	defer span.End()
	if err := s.cache.ClearHistory(ctx, cs.ChatID); err != nil {
		s.log.ErrorContext(ctx, "chat - clear chat - cache clear failed", "chat_id", cs.ChatID, "err", err)
	}
	s.registry.Broadcast(ctx, cs.ChatID, "", domain.ClearedEvent{
		Type:   domain.TypeCleared,
		ChatID: cs.ChatID,
		ByID:   cs.Local.UserID,
	})
	if _, err := s.messages.ClearMessages(ctx, cs.ChatID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stored delete failed")
		return err
	}
	span.SetStatus(codes.Ok, "cleared")
	return nil
}
