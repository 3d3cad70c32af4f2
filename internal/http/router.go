package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kharelcodes/bloghub/internal/auth"
	"github.com/kharelcodes/bloghub/internal/cache"
	"github.com/kharelcodes/bloghub/internal/config"
	"github.com/kharelcodes/bloghub/internal/http/handlers"
	"github.com/kharelcodes/bloghub/internal/http/middlewares"
	"github.com/kharelcodes/bloghub/internal/observability"
	"github.com/kharelcodes/bloghub/internal/repo/postgres"
	"github.com/kharelcodes/bloghub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// metrics on a private registry so tests can build routers freely
	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(otelgin.Middleware("bloghub-api"))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(10 << 20))
	r.Use(middlewares.RequireJSON())

	// repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	blogsRepo := postgres.NewBlogsRepo(pool, prom)
	commentsRepo := postgres.NewCommentsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	// supporting services
	jwtManager := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	authMW := middlewares.NewAuthMiddleware(jwtManager)

	var listCache handlers.ListCache
	if cfg.RedisAddr != "" {
		listCache = cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, 30*time.Second)
	}

	var images storage.ObjectStorage
	if cfg.MinioEndpoint != "" {
		m, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Error("minio init failed, image uploads disabled", "err", err)
		} else {
			images = m
		}
	}

	// handlers
	var pinger handlers.Pinger
	if pool != nil {
		pinger = pool
	}
	healthHandler := handlers.NewHealthHandler(pinger)
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, usersRepo, jwtManager, jobsRepo)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	blogsHandler := handlers.NewBlogsHandler(blogsRepo, listCache, images)
	commentsHandler := handlers.NewCommentsHandler(commentsRepo, blogsRepo, usersRepo, jobsRepo)
	adminJobsHandler := handlers.NewAdminJobsHandler(jobsRepo)

	// rate limiters: tight on credential endpoints, generous elsewhere
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	writeLimiter := middlewares.NewRateLimiter(60, time.Minute)

	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	authGroup := r.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/reset-code", authHandler.RequestResetCode)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	// public reads
	r.GET("/blogs", blogsHandler.List)
	r.GET("/blogs/search", blogsHandler.Search)
	r.GET("/blogs/:id", blogsHandler.Get)
	r.GET("/blogs/:id/comments", commentsHandler.ListForBlog)

	// authenticated writes
	protected := r.Group("/")
	protected.Use(authMW.RequireAuth())
	protected.Use(writeLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	{
		protected.POST("/blogs", blogsHandler.Create)
		protected.PUT("/blogs/:id", blogsHandler.Update)
		protected.DELETE("/blogs/:id", blogsHandler.Delete)
		protected.POST("/blogs/:id/image", blogsHandler.UploadImage)

		protected.POST("/blogs/:id/comments", commentsHandler.Create)
		protected.DELETE("/blogs/:id/comments/:commentId", commentsHandler.Delete)

		protected.GET("/users/:id", usersHandler.Get)
		protected.PUT("/users/:id", usersHandler.UpdateProfile)
		protected.PUT("/users/:id/password", usersHandler.ChangePassword)
		protected.DELETE("/users/:id", usersHandler.Delete)
	}

	admin := r.Group("/admin")
	admin.Use(authMW.RequireAuth(), authMW.RequireAdmin())
	{
		admin.GET("/users", usersHandler.List)
		admin.PUT("/users/:id/role", usersHandler.UpdateRole)

		admin.GET("/jobs", adminJobsHandler.List)
		admin.GET("/jobs/:id", adminJobsHandler.GetByID)
		admin.POST("/jobs/:id/retry", adminJobsHandler.Retry)
	}

	return r
}
