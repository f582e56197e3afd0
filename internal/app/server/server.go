package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/smakam/globtranslate-claude/internal/app/registry"
	"github.com/smakam/globtranslate-claude/internal/app/server/handlers"
	"github.com/smakam/globtranslate-claude/internal/config"
	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/services"
	"github.com/smakam/globtranslate-claude/pkg/middleware"
)

type Server struct {
	log         *slog.Logger
	mux         *http.ServeMux
	cfg         *config.Config
	authHandler *handlers.AuthHandler
	userHandler *handlers.UserHandler
	wsHandler   *handlers.ChatWSHandler
	tokenSvc    *services.TokenService
}

func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	identitySvc *services.IdentityService,
	directorySvc *services.DirectoryService,
	chatSvc *services.ChatService,
	tokenSvc *services.TokenService,
	cache contracts.RecencyStore,
	hub *registry.Registry,
) *Server {
	s := &Server{
		log:         log,
		mux:         http.NewServeMux(),
		cfg:         cfg,
		authHandler: handlers.NewAuthHandler(identitySvc, tokenSvc),
		userHandler: handlers.NewUserHandler(identitySvc, directorySvc, cache),
		wsHandler:   handlers.NewChatWSHandler(identitySvc, chatSvc, hub),
		tokenSvc:    tokenSvc,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)

	// Public
	s.mux.HandleFunc("POST /api/auth/anonymous", s.authHandler.SignInAnonymous)

	// Protected
	s.mux.Handle("GET /api/users/lookup", auth(http.HandlerFunc(s.userHandler.Lookup)))
	s.mux.Handle("GET /api/users/me", auth(http.HandlerFunc(s.userHandler.Me)))
	s.mux.Handle("PATCH /api/users/me", auth(http.HandlerFunc(s.userHandler.UpdateMe)))
	s.mux.Handle("POST /api/users/me/heartbeat", auth(http.HandlerFunc(s.userHandler.Heartbeat)))
	s.mux.Handle("DELETE /api/users/me/session", auth(http.HandlerFunc(s.userHandler.SignOut)))
	s.mux.Handle("GET /api/users/me/qr", auth(http.HandlerFunc(s.userHandler.QRCode)))
	s.mux.Handle("GET /api/contacts/recent", auth(http.HandlerFunc(s.userHandler.RecentContacts)))
	s.mux.Handle("POST /api/contacts/recent", auth(http.HandlerFunc(s.userHandler.AddRecentContact)))
	s.mux.Handle("GET /api/prefs/theme", auth(http.HandlerFunc(s.userHandler.Theme)))
	s.mux.Handle("PUT /api/prefs/theme", auth(http.HandlerFunc(s.userHandler.SetTheme)))

	// Websocket clients pass the token as ?token=.
	s.mux.Handle("GET /ws", auth(http.HandlerFunc(s.wsHandler.Serve)))
}

func (s *Server) handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	var h http.Handler = s.mux
	h = middleware.TracerMiddleware(s.cfg.Service.Name)(h)
	h = middleware.RequestLogger(s.log)(h)
	return c.Handler(h)
}

func (s *Server) Start() error {
	server := &http.Server{
		Addr:         s.cfg.Service.Addr,
		Handler:      s.handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.log.Info("server - starting", "addr", s.cfg.Service.Addr)
	return server.ListenAndServe()
}
