// Package server contains the HTTP and WebSocket handlers of the threadline API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "threadline/docs" // swagger docs

	"threadline/internal/cache"
	"threadline/internal/config"
	"threadline/internal/database"
	"threadline/internal/featureflags"
	"threadline/internal/middleware"
	"threadline/internal/models"
	"threadline/internal/notifications"
	"threadline/internal/observability"
	"threadline/internal/ratelimit"
	"threadline/internal/repository"
	"threadline/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          *repository.InteractionStore
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	limiter      *ratelimit.Limiter
	featureFlags *featureflags.Manager
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	dispatcher   *notifications.Dispatcher
	profileCache *cache.ProfileCache

	likeService         *service.LikeService
	followService       *service.FollowService
	feedService         *service.FeedService
	postService         *service.PostService
	notificationService *service.NotificationService
	reconciler          *service.CounterReconciler
}

// NewServer connects the configured store and Redis and builds the server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, store, cache.GetClient())
}

// NewServerWithDeps builds a Server over already-initialized dependencies.
// redisClient may be nil, which disables the profile cache and realtime push.
func NewServerWithDeps(cfg *config.Config, store *repository.InteractionStore, redisClient *redis.Client) (*Server, error) {
	s := &Server{
		config:         cfg,
		store:          store,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("threadline-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	if cfg.RateLimitEnabled {
		classes, err := ratelimit.ParseClasses(cfg.RateLimits)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMITS: %w", err)
		}
		s.limiter = ratelimit.New(classes, ratelimit.WithIdleTTL(cfg.RateLimitIdleTTL))
	}

	var publisher notifications.Publisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		publisher = s.notifier
	}
	s.dispatcher = notifications.NewDispatcher(store.Notifications, publisher, s.featureFlags,
		notifications.DispatcherConfig{
			Workers:   cfg.NotifyWorkers,
			QueueSize: cfg.NotifyQueueSize,
		})

	var profiles service.ProfileSource
	if redisClient != nil {
		s.profileCache = cache.NewProfileCache(redisClient, store.Profiles, cfg.ProfileCacheTTL)
		profiles = s.profileCache
	}

	s.likeService = service.NewLikeService(store.Posts, store.Likes, s.dispatcher)
	s.followService = service.NewFollowService(store.Follows, store.Profiles, s.dispatcher)
	s.feedService = service.NewFeedService(store.Posts, store.Profiles, profiles, s.likeService, s.followService)
	s.postService = service.NewPostService(store.Posts, s.feedService, s.dispatcher)
	s.notificationService = service.NewNotificationService(store.Notifications)
	s.reconciler = service.NewCounterReconciler(store.Posts, store.Likes)

	return s, nil
}

// NewApp builds a Fiber app with the server's middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Threadline API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.Logger.ErrorContext(c.UserContext(), "Unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Resolve the caller before ContextMiddleware so logs carry user_id.
	app.Use(middleware.Authenticate(s.config))
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		ExposeHeaders:    "Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := middleware.RequireUser()
	limit := func(class string) fiber.Handler {
		return middleware.RateLimit(s.limiter, class)
	}

	interactions := api.Group("/interactions")
	interactions.Get("/:postId/like", s.GetLikeStatus)
	interactions.Post("/:postId/like", auth, limit(ratelimit.ClassLike), s.ToggleLike)

	follows := api.Group("/follows")
	follows.Get("/:userId", s.GetFollowStatus)
	follows.Post("/:userId", auth, limit(ratelimit.ClassFollow), s.FollowUser)
	follows.Delete("/:userId", auth, limit(ratelimit.ClassFollow), s.UnfollowUser)

	feed := api.Group("/feed")
	feed.Get("/", s.GetFeed)
	feed.Get("/following", auth, s.GetFollowingFeed)

	threads := api.Group("/threads")
	threads.Post("/", auth, limit(ratelimit.ClassPostCreate), s.CreateThread)
	// Specific /:id/:resource routes before the generic /:id route.
	threads.Get("/:id/replies", s.GetReplies)
	threads.Post("/:id/replies", auth, limit(ratelimit.ClassPostCreate), s.CreateReply)
	threads.Get("/:id", s.GetThread)

	inbox := api.Group("/notifications", auth)
	inbox.Get("/", s.GetNotifications)
	inbox.Post("/:id/read", limit(ratelimit.ClassDefault), s.MarkNotificationRead)

	api.Get("/ws/notifications", auth, s.NotificationsWebSocket())
}

// StartBackground starts the notification workers, the Redis fan-out, and
// the periodic jobs. They stop when Shutdown is called.
func (s *Server) StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.dispatcher.Start(ctx)

	if s.hub != nil && s.notifier != nil {
		go func() {
			if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
				observability.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	if s.limiter != nil {
		s.limiter.StartJanitor(ctx, time.Minute)
	}
	s.reconciler.Start(ctx, s.config.RecountInterval)
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	s.StartBackground()

	observability.Logger.Info("Server starting", slog.String("port", s.config.Port),
		slog.String("store", s.store.Backend()))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Drain queued notifications before the store goes away.
	if err := s.dispatcher.Stop(ctx); err != nil {
		observability.Logger.Warn("notification queue not drained", slog.String("error", err.Error()))
	}

	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			observability.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if err := s.store.Close(ctx); err != nil {
		observability.Logger.Error("error closing store", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			observability.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	observability.Logger.Info("Server shutdown complete")
	return nil
}
