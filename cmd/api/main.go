package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/clipnest/messaging/internal/auth"
	"github.com/clipnest/messaging/internal/config"
	"github.com/clipnest/messaging/internal/conversation"
	"github.com/clipnest/messaging/internal/database"
	"github.com/clipnest/messaging/internal/message"
	"github.com/clipnest/messaging/internal/realtime"
	"github.com/clipnest/messaging/internal/user"
	mw "github.com/clipnest/messaging/pkg/middleware"

	_ "github.com/clipnest/messaging/docs"
)

// @title           Clipnest Messaging API
// @version         1.0
// @description     Direct messages, group conversations and the social graph behind them.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	// Realtime hub delivers websocket pushes for new messages and receipts
	hub := realtime.NewHub()

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	// Auth feature
	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, userRepo, cfg.JWTSecret, cfg.JWTExpiration, cfg.RefreshExpiration)
	authHandler := auth.NewHandler(authService)

	// Conversation feature
	conversationRepo := conversation.NewRepository(db)
	conversationService := conversation.NewService(conversationRepo, userRepo)
	conversationHandler := conversation.NewHandler(conversationService)

	// Message feature (conversation and user repos injected for membership
	// and identity checks, hub injected for realtime fan-out)
	messageRepo := message.NewRepository(db)
	messageService := message.NewService(messageRepo, userRepo, conversationRepo, hub)
	messageHandler := message.NewHandler(messageService)

	authenticate := mw.Auth(func(token string) (int64, error) {
		claims, err := auth.ParseToken(token, cfg.JWTSecret)
		if err != nil {
			return 0, err
		}
		return claims.UserID, nil
	})

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Mount("/users", userHandler.Routes())
			r.Mount("/conversations", conversationHandler.Routes())
			r.Mount("/messages", messageHandler.Routes())
		})
	})

	// Websocket endpoint for realtime events
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/ws", hub.ServeWS)
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
