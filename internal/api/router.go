package api

import (
	"net/http"

	"github.com/aqibaliakbar/chatbuddy/internal/api/handler"
	customMiddleware "github.com/aqibaliakbar/chatbuddy/internal/api/middleware"
	"github.com/aqibaliakbar/chatbuddy/internal/backend"
	"github.com/aqibaliakbar/chatbuddy/internal/config"
	"github.com/aqibaliakbar/chatbuddy/internal/repository/postgres"
	"github.com/aqibaliakbar/chatbuddy/internal/repository/redis"
	"github.com/aqibaliakbar/chatbuddy/internal/security"
	"github.com/aqibaliakbar/chatbuddy/internal/service"
	"github.com/aqibaliakbar/chatbuddy/internal/shopify"
	"github.com/aqibaliakbar/chatbuddy/internal/trainer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS: credentials stay on for the dashboard, and the widget
	// snippet endpoint is reachable from embedding sites.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	sessionManager := security.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	// Initialize encryptor
	encryptionKey := []byte(cfg.Security.EncryptionKey)
	if len(encryptionKey) > 32 {
		encryptionKey = encryptionKey[:32]
	} else if len(encryptionKey) < 32 {
		padded := make([]byte, 32)
		copy(padded, encryptionKey)
		encryptionKey = padded
	}
	encryptor, err := security.NewEncryptor(encryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryptor")
	}

	// Initialize upstream clients
	authBackend := backend.New(cfg.Auth)
	trainerClient := trainer.New(cfg.Trainer)
	shopifyClient := shopify.New(cfg.Shopify)

	// Initialize repositories
	tokenRepo := postgres.NewAPITokenRepository(db)
	shopifyRepo := postgres.NewShopifyConnectionRepository(db)
	scrapeJobRepo := postgres.NewScrapeJobRepository(db)
	selectionRepo := postgres.NewSelectionRepository(db)

	// Initialize rate limiter and session cache
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)
	sessionCache := redis.NewSessionCache(redisClient)

	// Initialize services
	sessionService := service.NewSessionService(authBackend, sessionManager, sessionCache)
	chatbotService := service.NewChatbotService(
		authBackend,
		trainerClient,
		scrapeJobRepo,
		selectionRepo,
		cfg.Security.MaxBatchFiles,
		cfg.Security.MaxAudioUploadMB*1024*1024,
	)
	shopifyService := service.NewShopifyService(shopifyClient, shopifyRepo, selectionRepo, encryptor, trainerClient)
	tokenService := service.NewAPITokenService(tokenRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(sessionService, cfg.Auth)
	chatbotHandler := handler.NewChatbotHandler(chatbotService)
	ingestHandler := handler.NewIngestHandler(chatbotService)
	tokenHandler := handler.NewTokenHandler(tokenService)
	shopifyHandler := handler.NewShopifyHandler(shopifyService)
	widgetHandler := handler.NewWidgetHandler(cfg.Widget.Domain)
	pageHandler := handler.NewPageHandler()

	// Session middleware
	sessionMiddleware := customMiddleware.NewSessionMiddleware(sessionService, cfg.Auth.CookieName)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	// Public routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/login", authHandler.SignIn)
			r.Post("/google", authHandler.GoogleSignIn)
			r.Get("/google/callback", authHandler.GoogleCallback)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/session", authHandler.Session)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware.RequireSession)

			r.Post("/auth/logout", authHandler.SignOut)
			r.Post("/auth/update-password", authHandler.UpdatePassword)
			r.Get("/auth/me", authHandler.Me)
			r.Get("/auth/events", authHandler.Events)

			// Chatbot routes
			r.Route("/chatbots", func(r chi.Router) {
				r.Get("/", chatbotHandler.List)
				r.Get("/selected", chatbotHandler.Selected)
				r.Post("/{chatbotID}/select", chatbotHandler.Select)
			})

			// Ingestion routes, rate limited per account
			r.Route("/ingest", func(r chi.Router) {
				r.Use(rateLimitMiddleware.Limit)

				r.Post("/files", ingestHandler.TrainFiles)
				r.Post("/train", ingestHandler.Train)
				r.Post("/scrape", ingestHandler.ScrapeURL)
				r.Get("/scrape/urls", ingestHandler.ScannedURLs)
				r.Delete("/scrape/urls", ingestHandler.RemoveURL)
				r.Get("/scrape/{jobID}", ingestHandler.ScrapeJob)
				r.Get("/scrape/{jobID}/events", ingestHandler.ScrapeEvents)
				r.Post("/transcripts/audio", ingestHandler.AudioTranscript)
				r.Post("/transcripts/youtube", ingestHandler.YouTubeTranscript)
			})

			// API token routes
			r.Route("/tokens", func(r chi.Router) {
				r.Get("/", tokenHandler.List)
				r.Post("/", tokenHandler.Create)
				r.Delete("/{tokenID}", tokenHandler.Delete)
			})

			// Shopify integration routes
			r.Route("/shopify", func(r chi.Router) {
				r.Post("/auth-url", shopifyHandler.AuthURL)
				r.Get("/callback", shopifyHandler.Callback)
				r.Get("/status", shopifyHandler.Status)
				r.Post("/train", shopifyHandler.Train)
				r.Delete("/", shopifyHandler.Disconnect)
			})

			// Widget embed snippet
			r.Get("/widget/snippet", widgetHandler.Snippet)
		})
	})

	// Dashboard pages. EdgeGate runs over the whole tree and redirects
	// signed-out visitors; Guard re-checks on the protected views.
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.EdgeGate)

		r.Get("/login", pageHandler.Login)
		r.Get("/signup", pageHandler.Signup)
		r.Get("/signup-form", pageHandler.SignupForm)
		r.Get("/forgot-password", pageHandler.ForgotPassword)

		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware.Guard)

			r.Get("/", pageHandler.Dashboard)
			r.Get("/knowledge", pageHandler.Knowledge)
		})
	})

	return r
}
