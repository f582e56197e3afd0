package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
	"github.com/smakam/globtranslate-claude/internal/core/services"
	"github.com/smakam/globtranslate-claude/internal/platform/logger"
	"github.com/smakam/globtranslate-claude/pkg/middleware"
)

type UserHandler struct {
	identity  *services.IdentityService
	directory *services.DirectoryService
	cache     contracts.RecencyStore
}

func NewUserHandler(identity *services.IdentityService, directory *services.DirectoryService, cache contracts.RecencyStore) *UserHandler {
	return &UserHandler{identity: identity, directory: directory, cache: cache}
}

func sessionFrom(r *http.Request) string {
	sid, _ := r.Context().Value(middleware.SessionIDKey).(string)
	return sid
}

// Me returns the caller's own profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.identity.CurrentProfile(r.Context(), sessionFrom(r))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		jsonResponse(w, status, payload{Success: false, Message: "profile not found"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true, Data: viewOf(p)})
}

// UpdateMe applies partial username/language updates.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Username *string `json:"username"`
		Language *string `json:"language"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonResponse(w, http.StatusBadRequest, payload{Success: false, Message: "invalid request"})
		return
	}
	sid := sessionFrom(r)
	var p *domain.Profile
	var err error
	if req.Username != nil {
		p, err = h.identity.UpdateUsername(r.Context(), sid, *req.Username)
		if errors.Is(err, domain.ErrUsernameTaken) {
			jsonResponse(w, http.StatusConflict, payload{Success: false, Message: "username already taken"})
			return
		}
		if err != nil {
			log.ErrorContext(r.Context(), "user handler - update username failed", "err", err)
			jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "update failed"})
			return
		}
	}
	if req.Language != nil {
		p, err = h.identity.UpdateLanguage(r.Context(), sid, *req.Language)
		if err != nil {
			log.ErrorContext(r.Context(), "user handler - update language failed", "err", err)
			jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "update failed"})
			return
		}
	}
	if p == nil {
		jsonResponse(w, http.StatusBadRequest, payload{Success: false, Message: "nothing to update"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true, Data: viewOf(p)})
}

// Lookup resolves ?username= or ?id= to one profile via the directory
// tie-break. Not-found is a negative result, not a server error.
func (h *UserHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	username := r.URL.Query().Get("username")
	id := r.URL.Query().Get("id")

	var p *domain.Profile
	var err error
	switch {
	case username != "":
		p, err = h.directory.FindByUsername(r.Context(), username)
	case id != "":
		p, err = h.directory.FindByUserID(r.Context(), id)
	default:
		jsonResponse(w, http.StatusBadRequest, payload{Success: false, Message: "username or id required"})
		return
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		jsonResponse(w, http.StatusNotFound, payload{Success: false, Message: "user not found"})
		return
	}
	if err != nil {
		log.ErrorContext(r.Context(), "user handler - lookup failed", "err", err)
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "lookup failed"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true, Data: viewOf(p)})
}

func (h *UserHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.Heartbeat(r.Context(), sessionFrom(r)); err != nil {
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "heartbeat failed"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true})
}

func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.SignOut(r.Context(), sessionFrom(r)); err != nil {
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "sign-out failed"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true})
}

// QRCode renders the caller's connect code as a PNG; scanning it yields the
// same JSON the web client embeds.
func (h *UserHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	p, err := h.identity.CurrentProfile(r.Context(), sessionFrom(r))
	if err != nil {
		jsonResponse(w, http.StatusNotFound, payload{Success: false, Message: "profile not found"})
		return
	}
	value, _ := json.Marshal(map[string]string{"userId": p.UserID, "username": p.Username})
	png, err := qrcode.Encode(string(value), qrcode.Medium, 256)
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "qr encode failed"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// RecentContacts returns the caller's recency bookmarks, newest first.
func (h *UserHandler) RecentContacts(w http.ResponseWriter, r *http.Request) {
	p, err := h.identity.CurrentProfile(r.Context(), sessionFrom(r))
	if err != nil {
		jsonResponse(w, http.StatusNotFound, payload{Success: false, Message: "profile not found"})
		return
	}
	friends, err := h.cache.RecentContacts(r.Context(), p.UserID)
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "cache read failed"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true, Data: friends})
}

func (h *UserHandler) AddRecentContact(w http.ResponseWriter, r *http.Request) {
	p, err := h.identity.CurrentProfile(r.Context(), sessionFrom(r))
	if err != nil {
		jsonResponse(w, http.StatusNotFound, payload{Success: false, Message: "profile not found"})
		return
	}
	var f domain.Friend
	if err := decodeJSON(r, &f); err != nil || f.ID == "" {
		jsonResponse(w, http.StatusBadRequest, payload{Success: false, Message: "invalid request"})
		return
	}
	if err := h.cache.AddRecentContact(r.Context(), p.UserID, f); err != nil {
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "cache write failed"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true})
}

func (h *UserHandler) Theme(w http.ResponseWriter, r *http.Request) {
	p, err := h.identity.CurrentProfile(r.Context(), sessionFrom(r))
	if err != nil {
		jsonResponse(w, http.StatusNotFound, payload{Success: false, Message: "profile not found"})
		return
	}
	theme, err := h.cache.Theme(r.Context(), p.UserID)
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "cache read failed"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true, Data: map[string]string{"theme": theme}})
}

func (h *UserHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	p, err := h.identity.CurrentProfile(r.Context(), sessionFrom(r))
	if err != nil {
		jsonResponse(w, http.StatusNotFound, payload{Success: false, Message: "profile not found"})
		return
	}
	var req struct {
		Theme string `json:"theme"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonResponse(w, http.StatusBadRequest, payload{Success: false, Message: "invalid request"})
		return
	}
	if err := h.cache.SetTheme(r.Context(), p.UserID, req.Theme); err != nil {
		jsonResponse(w, http.StatusInternalServerError, payload{Success: false, Message: "cache write failed"})
		return
	}
	jsonResponse(w, http.StatusOK, payload{Success: true})
}
