package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/auratask/internal/config"
	"github.com/yukikurage/auratask/internal/constants"
	"github.com/yukikurage/auratask/internal/database"
	"github.com/yukikurage/auratask/internal/handlers"
	"github.com/yukikurage/auratask/internal/middleware"
	"github.com/yukikurage/auratask/internal/notify"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
	"github.com/yukikurage/auratask/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := database.GetDB()

	// Run migrations
	if err := database.MigrateDatabase(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Email delivery runs on background workers
	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.BrevoAPIKey != "" {
		notifier = notify.NewBrevoNotifier(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName)
	}
	dispatcher := notify.NewDispatcher(notifier, logger, cfg.NotifyWorkers, cfg.NotifyQueueSize)
	dispatcher.Start()
	defer dispatcher.Stop()

	// AI collaborators are optional
	completer := services.NewCompleter(cfg.AIProvider, cfg.AIModel, cfg.OpenAIAPIKey, cfg.AnthropicAPIKey)
	var evaluator services.Evaluator
	if completer != nil {
		evaluator = services.NewLLMEvaluator(completer)
	} else {
		logger.Warn("AI provider not configured; evaluations fall back to rule-based text", "provider", cfg.AIProvider)
	}

	// Initialize services
	repos := repository.New(db)
	authService := services.NewAuthService(repos.Users)
	orgService := services.NewOrganizationService(repos.Organizations)
	performanceService := services.NewPerformanceService(repos, evaluator, logger, cfg.MonitorWorkers)
	taskService := services.NewTaskService(repos, performanceService, dispatcher, logger, cfg.AppURL)
	commentService := services.NewCommentService(repos, taskService)
	memberService := services.NewMemberService(repos, dispatcher, logger, cfg.AppURL)
	assistantService := services.NewAssistantService(repos, completer, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService, commentService, assistantService)
	orgHandler := handlers.NewOrganizationHandler(orgService, memberService, performanceService, dispatcher)

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "AuraTask API is running",
			"ai":      completer != nil,
		})
	})

	assistantLimiter := middleware.PerMinute(cfg.AIRatePerMinute)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Invite acceptance is public; the invitee has no account yet
		api.POST("/invites/accept", orgHandler.AcceptInvite)

		protected := api.Group("")
		protected.Use(middleware.RequireAuth(), middleware.LoadActor(repos.Users))

		org := protected.Group("/organization")
		{
			org.GET("", orgHandler.GetOrganization)
			org.GET("/trial", orgHandler.GetTrialStatus)
		}

		protected.GET("/members", orgHandler.ListMembers)

		invites := protected.Group("/invites")
		{
			invites.GET("", orgHandler.ListInvites)
			invites.POST("", orgHandler.CreateInvite)
		}

		performance := protected.Group("/performance")
		{
			performance.GET("", orgHandler.ListPerformance)
			performance.POST("/monitor", assistantLimiter.Middleware(), orgHandler.MonitorMembers)
		}

		protected.GET("/admin/notifications",
			middleware.RequireCapability(permissions.CapViewAllMembers, "Only Admins can view notification delivery"),
			orgHandler.NotificationStats)

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/assistant", assistantLimiter.Middleware(), taskHandler.Assist)

			task := tasks.Group("/:id", middleware.RequireTaskID())
			task.GET("", taskHandler.GetTask)
			task.PATCH("", taskHandler.UpdateTask)
			task.DELETE("", taskHandler.DeleteTask)
			task.GET("/comments", taskHandler.ListComments)
			task.POST("/comments", taskHandler.AddComment)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.GinMode == "release" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
