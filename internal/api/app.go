package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/roamhq/roamchat/internal/auth"
	"github.com/roamhq/roamchat/internal/chat"
	"github.com/roamhq/roamchat/internal/config"
	"github.com/roamhq/roamchat/internal/database"
	"github.com/roamhq/roamchat/internal/messages"
	"github.com/roamhq/roamchat/internal/rooms"
)

type App struct {
	log            *log.Logger
	db             database.Repository
	mux            *http.Server
	cs             *chat.ChatServer
	resolver       *rooms.Resolver
	guard          *rooms.Guard
	store          *messages.Store
	tokens         *auth.TokenManager
	allowedOrigins []string
}

func NewApp(mux *http.ServeMux, logger *log.Logger, cs *chat.ChatServer, db database.Repository,
	resolver *rooms.Resolver, guard *rooms.Guard, store *messages.Store,
	tokens *auth.TokenManager, cfg *config.Config) *App {

	s := &App{
		log:            logger,
		db:             db,
		cs:             cs,
		resolver:       resolver,
		guard:          guard,
		store:          store,
		tokens:         tokens,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/private/{userId}", s.authMiddleware(s.privateHistory))
	mux.Handle("GET /api/group/{groupId}", s.authMiddleware(s.groupHistory))
	mux.Handle("POST /api/message", s.authMiddleware(s.postMessage))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.getRoom))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
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

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.log.Println("server shutdown complete")
	return nil
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *App) writeError(w http.ResponseWriter, err error) {
	errResp := apiErrorFor(err)
	if errResp.StatusCode == http.StatusInternalServerError {
		s.log.Printf("internal error: %v", err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *App) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
