package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/smakam/globtranslate-claude/internal/core/services"
	"github.com/smakam/globtranslate-claude/internal/platform/logger"
)

type AuthHandler struct {
	identity *services.IdentityService
	tokenSvc *services.TokenService
}

func NewAuthHandler(identity *services.IdentityService, tokenSvc *services.TokenService) *AuthHandler {
	return &AuthHandler{identity: identity, tokenSvc: tokenSvc}
}

// SignInAnonymous establishes or resumes a session. A valid bearer token on
// the request resumes that session; otherwise a fresh one is minted.
func (h *AuthHandler) SignInAnonymous(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	sessionID := ""
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.Split(auth, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			if sid, err := h.tokenSvc.ValidateToken(parts[1]); err == nil {
				sessionID = sid
			}
		}
	}

	sess, err := h.identity.SignInAnonymous(r.Context(), sessionID)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - sign in failed", "err", err)
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "sign-in failed"})
		return
	}
	token, err := h.tokenSvc.GenerateToken(sess.SessionID)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", "session_id", sess.SessionID)
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "failed to generate token"})
		return
	}
	log.InfoContext(r.Context(), "auth handler - sign in success", "session_id", sess.SessionID, "user_id", sess.UserID, "is_new", sess.IsNew)
	jsonResponse(w, http.StatusOK, payload{Success: true, Data: map[string]any{
		"token":    token,
		"userId":   sess.UserID,
		"username": sess.Username,
		"language": sess.Language,
		"isNew":    sess.IsNew,
	}})
}

// decodeJSON is shared by the mutating handlers.
func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
