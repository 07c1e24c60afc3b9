package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/bookmatch/go-bookmatch/internal/cache"
	"github.com/bookmatch/go-bookmatch/internal/config"
	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/matching"
	"github.com/bookmatch/go-bookmatch/internal/server"
)

type BookMatchApp struct {
	log            *log.Logger
	db             database.BookMatchRepository
	mux            *http.Server
	cs             *server.ChatServer
	finder         *matching.MatchFinder
	resolver       *matching.RoomResolver
	unread         *cache.UnreadCounter
	signingKey     []byte
	allowedOrigins []string
}

func NewBookMatchApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.BookMatchRepository,
	finder *matching.MatchFinder, resolver *matching.RoomResolver, unread *cache.UnreadCounter, cfg *config.Config) *BookMatchApp {
	s := &BookMatchApp{
		log:            logger,
		db:             db,
		cs:             cs,
		finder:         finder,
		resolver:       resolver,
		unread:         unread,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/me", s.authMiddleware(s.me))
	mux.HandleFunc("GET /api/books", s.authMiddleware(s.listBooks))
	mux.HandleFunc("POST /api/books", s.authMiddleware(s.createBook))
	mux.HandleFunc("DELETE /api/books/{bookId}", s.authMiddleware(s.deleteBook))
	mux.HandleFunc("GET /api/match/find", s.authMiddleware(s.findMatches))
	mux.HandleFunc("POST /api/match/chat-room", s.authMiddleware(s.resolveChatRoom))
	mux.HandleFunc("GET /api/match/chat-room/{roomId}", s.authMiddleware(s.getChatRoom))
	mux.HandleFunc("GET /api/match/chat-rooms", s.authMiddleware(s.listChatRooms))
	mux.HandleFunc("GET /api/notifications", s.authMiddleware(s.listNotifications))
	mux.HandleFunc("GET /api/notifications/unread-count", s.authMiddleware(s.unreadNotificationCount))
	mux.HandleFunc("PUT /api/notifications/{notificationId}/read", s.authMiddleware(s.markNotificationRead))
	mux.HandleFunc("PUT /api/notifications/read-all", s.authMiddleware(s.markAllNotificationsRead))
	mux.HandleFunc("DELETE /api/notifications/{notificationId}", s.authMiddleware(s.deleteNotification))
	mux.HandleFunc("DELETE /api/notifications/read/all", s.authMiddleware(s.deleteReadNotifications))
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))
	mux.HandleFunc("GET /healthz", s.healthz)

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

func (s *BookMatchApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *BookMatchApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
