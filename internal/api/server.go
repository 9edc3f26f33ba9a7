// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/parting-gifts/internal/logging"
	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/service"
)

// Service interfaces for dependency injection and testing

// AccountServiceInterface defines the interface for account operations
type AccountServiceInterface interface {
	Register(ctx context.Context, req service.RegisterRequest) error
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	ResetPassword(ctx context.Context, email string) error
	SecurityInfo(ctx context.Context, email string) (username, question string, err error)
	VerifySecurityAnswer(ctx context.Context, username, answer string) error
	ChangePassword(ctx context.Context, username, newPassword string) error
	Details(ctx context.Context, username string) (*models.User, error)
	UpdateDetails(ctx context.Context, username, primary, secondary, question, answer string) error
	Privacy(ctx context.Context, username string) (models.PrivacySettings, error)
	UpdatePrivacy(ctx context.Context, username string, settings models.PrivacySettings) error
}

// GiftServiceInterface defines the interface for gift operations
type GiftServiceInterface interface {
	Upload(ctx context.Context, username, fileName string, fileData []byte, customMessage string) (int, error)
	List(ctx context.Context, username string) ([]*models.Gift, error)
	Count(ctx context.Context, username string) (int, error)
	PendingCount(ctx context.Context, username string) (int, error)
	StopPending(ctx context.Context, giftID int) error
	Download(ctx context.Context, giftID int) (*models.Gift, error)
	SetupReceivers(ctx context.Context, giftID int, receivers string, releaseAt *time.Time) error
	Receivers(ctx context.Context, username string) ([]string, error)
	Calendar(ctx context.Context, username string) ([]models.CalendarEvent, error)
	ScheduleInactivityCheck(ctx context.Context, username string) error
}

// SocialServiceInterface defines the interface for the follower graph
type SocialServiceInterface interface {
	Followers(ctx context.Context, username string) ([]string, error)
	Following(ctx context.Context, username string) ([]string, error)
	Discover(ctx context.Context, username string) ([]string, error)
	Search(ctx context.Context, username, query string) ([]string, error)
	Follow(ctx context.Context, username, friendUsername string) error
	Unfollow(ctx context.Context, username, friendUsername string) error
	EligibleForMessaging(ctx context.Context, username string) ([]string, error)
}

// MessageServiceInterface defines the interface for direct messages
type MessageServiceInterface interface {
	Send(ctx context.Context, fromUsername, toUsername, content string) error
	Inbox(ctx context.Context, username string) ([]models.InboxMessage, error)
	UnreadCount(ctx context.Context, username string) (int, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	accounts   AccountServiceInterface
	gifts      GiftServiceInterface
	social     SocialServiceInterface
	messages   MessageServiceInterface
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond float64
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	accounts AccountServiceInterface,
	gifts GiftServiceInterface,
	social SocialServiceInterface,
	messages MessageServiceInterface,
) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		accounts: accounts,
		gifts:    gifts,
		social:   social,
		messages: messages,
		config:   config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes. Paths are part of the public
// contract and must not change.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Accounts and recovery
	s.router.HandleFunc("/create-account", s.handleCreateAccount).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/login", s.handleLogin).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/reset-password", s.handleResetPassword).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/change-password", s.handleChangePassword).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get-security-info", s.handleGetSecurityInfo).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/verify-security-answer", s.handleVerifySecurityAnswer).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/update-emails", s.handleUpdateEmails).Methods("GET", "POST", "OPTIONS")
	s.router.HandleFunc("/get-privacy", s.handleGetPrivacy).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/update-privacy", s.handleUpdatePrivacy).Methods("POST", "OPTIONS")

	// Gifts
	s.router.HandleFunc("/upload-gift", s.handleUploadGift).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/gifts", s.handleGetGifts).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/gift-count", s.handleGiftCount).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/download-gift", s.handleDownloadGift).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/dashboard/pending-gifts", s.handlePendingGifts).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/stop-pending-gift", s.handleStopPendingGift).Methods("DELETE", "OPTIONS")
	s.router.HandleFunc("/setup-receivers", s.handleSetupReceivers).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get-receivers", s.handleGetReceivers).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/gift-calendar", s.handleGiftCalendar).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/schedule-check", s.handleScheduleCheck).Methods("POST", "OPTIONS")

	// Social graph
	s.router.HandleFunc("/friends/followers", s.handleFollowers).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/friends/following", s.handleFollowing).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/users/discover", s.handleDiscover).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/users/search", s.handleSearchUsers).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/users/follow", s.handleFollow).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/users/unfollow", s.handleUnfollow).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/users/eligible-messaging", s.handleEligibleMessaging).Methods("GET", "OPTIONS")

	// Messaging
	s.router.HandleFunc("/send-message", s.handleSendMessage).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get-messages", s.handleGetMessages).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/notifications", s.handleNotifications).Methods("GET", "OPTIONS")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "parting-gifts",
	})
}

// Router exposes the configured router. Used in tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// requireUsername extracts the username query parameter shared by most
// read endpoints.
func requireUsername(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respondText(w, http.StatusBadRequest, "Username is required")
		return "", false
	}
	return username, true
}
