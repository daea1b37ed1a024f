package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v76"

	"finquestAPI/handlers"
	"finquestAPI/internal/push"
	"finquestAPI/internal/workers"
	"finquestAPI/middleware"
	"finquestAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	contentService      *services.ContentService
	eventService        *services.EventService
	gamificationService *services.GamificationService
	questService        *services.QuestService
	challengeService    *services.ChallengeService
	savingsService      *services.SavingsService
	fcmService          *push.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		log.Println("STRIPE_SECRET_KEY not set, premium checkout sync disabled")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	eventService = services.NewEventService(dbPool)
	userService = services.NewUserService(dbPool)
	contentService = services.NewContentService(dbPool, userService)
	gamificationService = services.NewGamificationService(dbPool, eventService)
	questService = services.NewQuestService(dbPool, contentService, gamificationService, eventService)
	challengeService = services.NewChallengeService(dbPool, gamificationService, eventService)
	savingsService = services.NewSavingsService(dbPool, gamificationService)

	fcmService, err = push.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		eventService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService)
	questHandler := handlers.NewQuestHandler(questService, contentService, userService)
	gamificationHandler := handlers.NewGamificationHandler(gamificationService, userService)
	challengeHandler := handlers.NewChallengeHandler(challengeService, userService)
	savingsHandler := handlers.NewSavingsHandler(savingsService, userService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workers.StartChallengeExpiryWorker(workerCtx, challengeService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "finquest-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")
	api.HandleFunc("/webhooks/stripe", webhookHandler.HandleStripeWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/register-device", userHandler.RegisterDeviceToken).Methods("POST")

	protected.HandleFunc("/quests", questHandler.ListQuests).Methods("GET")
	protected.HandleFunc("/quests/{questId}", questHandler.GetQuest).Methods("GET")
	protected.HandleFunc("/quests/{questId}/start", questHandler.StartQuest).Methods("POST")
	protected.HandleFunc("/quests/{questId}/steps/{stepId}", questHandler.SubmitStep).Methods("POST")
	protected.HandleFunc("/quests/{questId}/session", questHandler.GetSession).Methods("GET")

	protected.HandleFunc("/gamification", gamificationHandler.GetState).Methods("GET")
	protected.HandleFunc("/gamification/badges", gamificationHandler.GetBadges).Methods("GET")
	protected.HandleFunc("/gamification/stats", gamificationHandler.GetStats).Methods("GET")

	protected.HandleFunc("/challenges/today", challengeHandler.GetToday).Methods("GET")
	protected.HandleFunc("/challenges/{id}/complete", challengeHandler.CompleteChallenge).Methods("POST")

	protected.HandleFunc("/savings", savingsHandler.CreateEvent).Methods("POST")
	protected.HandleFunc("/savings", savingsHandler.ListEvents).Methods("GET")
	protected.HandleFunc("/savings/{id}", savingsHandler.DeleteEvent).Methods("DELETE")
	protected.HandleFunc("/savings/{id}/verify", savingsHandler.VerifyEvent).Methods("POST")
	protected.HandleFunc("/impact", savingsHandler.GetImpact).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
