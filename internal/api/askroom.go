package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/askroom/go-askroom/internal/auth"
	"github.com/askroom/go-askroom/internal/config"
	"github.com/askroom/go-askroom/internal/database"
	"github.com/askroom/go-askroom/internal/server"
	"github.com/askroom/go-askroom/internal/stats"
	"github.com/gorilla/handlers"
)

type AskRoomApp struct {
	log            *log.Logger
	db             database.AskRoomRepository
	mux            *http.Server
	rs             *server.RoomServer
	stats          stats.StatsProvider
	google         auth.Provider
	signingKey     []byte
	allowedOrigins []string
}

func NewAskRoomApp(mux *http.ServeMux, logger *log.Logger, rs *server.RoomServer, db database.AskRoomRepository,
	sp stats.StatsProvider, google auth.Provider, cfg *config.Config) *AskRoomApp {
	s := &AskRoomApp{
		log:            logger,
		db:             db,
		rs:             rs,
		stats:          sp,
		google:         google,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/google/login", s.googleLogin)
	mux.HandleFunc("GET /api/auth/google/callback", s.googleCallback)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms", s.getRoom)
	mux.Handle("DELETE /api/rooms", s.authMiddleware(s.endRoom))
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *AskRoomApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *AskRoomApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
