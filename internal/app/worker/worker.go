package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
	"github.com/smakam/globtranslate-claude/internal/core/services"
)

// ChatWorker drains one channel's stream into Postgres while the channel has
// live subscribers.
type ChatWorker struct {
	log      *slog.Logger
	queue    contracts.MessageQueue
	messages *services.MessageService
	conGroup string
}

func NewChatWorker(
	log *slog.Logger,
	queue contracts.MessageQueue,
	messages *services.MessageService,
	conGroup string,
) contracts.AsyncWorker {
	return &ChatWorker{
		log:      log,
		queue:    queue,
		messages: messages,
		conGroup: conGroup,
	}
}

func (w *ChatWorker) Run(
	ctx context.Context,
	chatID string,
) error {
	if err := w.queue.SubscribeToStream(ctx, chatID, w.conGroup, w.ProcessMessage); err != nil {
		w.log.ErrorContext(ctx, "worker - run - subscribe to stream failed", "chat_id", chatID, "group", w.conGroup, "err", err)
		return err
	}
	w.log.InfoContext(ctx, "worker - run - subscribe to stream success", "chat_id", chatID, "group", w.conGroup)
	return nil
}

func (w *ChatWorker) ProcessMessage(
	ctx context.Context,
	messageID string,
	raw []byte,
) error {
	var payload domain.MessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		w.log.Error("worker - process message - wrong payload", "message_id", messageID)
		return err
	}
	if err := w.messages.SaveAndBroadcast(ctx, &payload); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - save and broadcast failed", "message_id", messageID)
		return err
	}
	// DB save confirmed; remove the entry from the pending list and the
	// stream itself so the stream stays memory-efficient.
	if err := w.queue.AcknowledgeMessage(ctx, payload.ChatID, w.conGroup, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - acknowledge failed", "message_id", messageID)
		return err
	}
	if err := w.queue.DeleteMessage(ctx, payload.ChatID, messageID); err != nil {
		// already processed and acked
		w.log.ErrorContext(ctx, "worker - process message - delete failed", "message_id", messageID)
	}
	return nil
}
