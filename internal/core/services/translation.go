package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/smakam/globtranslate-claude/internal/config"
	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// TranslationResult carries the text to use for the message. Degraded is set
// when the remote call failed and Text is the untranslated input.
type TranslationResult struct {
	Text     string
	Degraded bool
	Reason   string
}

// TranslationService wraps the external translation call with the
// same-language short circuit, fail-fast pre-flight checks and the
// fallback-to-original contract. Pre-flight conditions (missing credential,
// local rate limit) error out without a request; everything after the
// request degrades to the original text so the send path never blocks.
type TranslationService struct {
	log        *slog.Logger
	translator contracts.Translator
	limiter    *slidingWindow
	hasAPIKey  bool
	now        func() time.Time
}

func NewTranslationService(log *slog.Logger, translator contracts.Translator, cfg config.TranslatorConfig) *TranslationService {
	return &TranslationService{
		log:        log,
		translator: translator,
		limiter:    newSlidingWindow(cfg.MaxRequests, cfg.Window),
		hasAPIKey:  cfg.APIKey != "",
		now:        time.Now,
	}
}

func (s *TranslationService) Translate(ctx context.Context, text, sourceLang, targetLang string) (TranslationResult, error) {
	if sourceLang == targetLang {
		return TranslationResult{Text: text}, nil
	}
	if !s.hasAPIKey {
		return TranslationResult{}, domain.ErrMissingCredential
	}
	if !s.limiter.Allow(s.now()) {
		s.log.WarnContext(ctx, "translation - translate - local rate limit hit", "source", sourceLang, "target", targetLang)
		return TranslationResult{}, domain.ErrRateLimited
	}
	translated, err := s.translator.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		s.log.ErrorContext(ctx, "translation - translate - remote call failed, falling back to original", "source", sourceLang, "target", targetLang, "err", err)
		return TranslationResult{Text: text, Degraded: true, Reason: err.Error()}, nil
	}
	return TranslationResult{Text: translated}, nil
}
