package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

type payload struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func jsonResponse(w http.ResponseWriter, status int, p payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// profileView is the public shape of a profile; the session handle stays
// server-side except for the owner's own reads.
type profileView struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Language         string     `json:"language"`
	IsOnline         bool       `json:"isOnline"`
	LastSeen         *time.Time `json:"lastSeen,omitempty"`
	LastOnlineUpdate *time.Time `json:"lastOnlineUpdate,omitempty"`
}

func viewOf(p *domain.Profile) profileView {
	v := profileView{
		ID:       p.UserID,
		Username: p.Username,
		Language: p.Language,
		IsOnline: p.IsOnline,
	}
	if !p.LastSeen.IsZero() {
		t := p.LastSeen
		v.LastSeen = &t
	}
	if !p.LastOnlineUpdate.IsZero() {
		t := p.LastOnlineUpdate
		v.LastOnlineUpdate = &t
	}
	return v
}
