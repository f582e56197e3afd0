package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// MessageService carries a message from the ingest path through the stream
// to durable storage and out to subscribers.
type MessageService struct {
	log      *slog.Logger
	queue    contracts.MessageQueue
	registry contracts.Registry
	repo     domain.MessageRepository
	chats    domain.ChatRepository
	cache    contracts.RecencyStore
	tx       contracts.TxRunner
}

func NewMessageService(
	log *slog.Logger,
	queue contracts.MessageQueue,
	registry contracts.Registry,
	repo domain.MessageRepository,
	chats domain.ChatRepository,
	cache contracts.RecencyStore,
	tx contracts.TxRunner,
) *MessageService {
	return &MessageService{
		log:      log,
		queue:    queue,
		registry: registry,
		repo:     repo,
		chats:    chats,
		cache:    cache,
		tx:       tx,
	}
}

// AcceptMessage publishes the payload to the channel stream and acks the
// sender so the UI can render its single tick without waiting for storage.
func (s *MessageService) AcceptMessage(ctx context.Context, payload domain.MessagePayload) error {
	raw, _ := json.Marshal(payload)
	if err := s.queue.PublishToStream(ctx, payload.ChatID, raw); err != nil {
		s.log.ErrorContext(ctx, "messages - accept message - publish to stream failed", "chat_id", payload.ChatID, "err", err)
		return err
	}
	s.registry.SendAck(ctx, payload.SenderSession, domain.AckMessage{
		Type:        domain.TypeAck,
		ClientMsgID: payload.ClientMsgID,
		Status:      domain.AckServerReceived,
		Timestamp:   time.Now(),
	})
	return nil
}

// SaveAndBroadcast persists one accepted payload: insert the message and
// refresh the chat summary in one transaction, mirror it into the history
// cache, broadcast to the channel and send the persisted ack.
func (s *MessageService) SaveAndBroadcast(ctx context.Context, payload *domain.MessagePayload) error {
	msg := &domain.Message{
		ID:             uuid.New(),
		ChatID:         payload.ChatID,
		SenderID:       payload.SenderID,
		SenderUsername: payload.SenderUsername,
		OriginalText:   payload.OriginalText,
		TranslatedText: payload.TranslatedText,
		Type:           payload.Type,
		CreatedAt:      payload.CreatedAt,
	}
	if msg.Type == "" {
		msg.Type = domain.MessageText
	}
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Insert(txCtx, msg); err != nil {
			return err
		}
		err := s.chats.UpdateSummary(txCtx, msg.ChatID, msg.OriginalText, msg.SenderID, msg.CreatedAt)
		if errors.Is(err, domain.ErrChatNotFound) {
			// First message ever raced the connect path; create the row.
			return s.chats.CreateChat(txCtx, &domain.Chat{
				ID:            msg.ChatID,
				Participants:  []string{payload.SenderSession, payload.PeerSession},
				UserIDs:       []string{payload.SenderID, payload.PeerID},
				LastMessage:   msg.OriginalText,
				LastSenderID:  msg.SenderID,
				LastMessageAt: msg.CreatedAt,
			})
		}
		return err
	}); err != nil {
		s.log.ErrorContext(ctx, "messages - save and broadcast - persist failed", "chat_id", msg.ChatID, "err", err)
		return err
	}
	event := msg.Event()
	if err := s.cache.AppendHistory(ctx, msg.ChatID, event); err != nil {
		s.log.ErrorContext(ctx, "messages - save and broadcast - history cache append failed", "chat_id", msg.ChatID, "err", err)
	}
	s.registry.Broadcast(ctx, msg.ChatID, payload.SenderSession, event)
	s.registry.SendAck(ctx, payload.SenderSession, domain.AckMessage{
		Type:        domain.TypeAck,
		ClientMsgID: payload.ClientMsgID,
		Status:      domain.AckPersisted,
		Timestamp:   time.Now(),
	})
	s.log.InfoContext(ctx, "messages - save and broadcast - success", "chat_id", msg.ChatID, "message_id", msg.ID)
	return nil
}

// GetMessages returns the authoritative channel history, timestamp ascending.
func (s *MessageService) GetMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	msgs, err := s.repo.ListByChat(ctx, chatID)
	if err != nil {
		s.log.ErrorContext(ctx, "messages - get messages - list failed", "chat_id", chatID, "err", err)
		return nil, err
	}
	return msgs, nil
}

// ClearMessages deletes the channel's stored messages and drops its stream.
func (s *MessageService) ClearMessages(ctx context.Context, chatID string) (int64, error) {
	var deleted int64
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		var txErr error
		deleted, txErr = s.repo.DeleteByChat(txCtx, chatID)
		return txErr
	})
	if err != nil {
		s.log.ErrorContext(ctx, "messages - clear messages - delete failed", "chat_id", chatID, "err", err)
		return 0, err
	}
	if err := s.queue.DeleteStream(ctx, chatID); err != nil {
		s.log.ErrorContext(ctx, "messages - clear messages - delete stream failed", "chat_id", chatID, "err", err)
	}
	s.log.InfoContext(ctx, "messages - clear messages - success", "chat_id", chatID, "deleted", deleted)
	return deleted, nil
}
