package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-xpost/xpost/internal/auth"
	"github.com/go-xpost/xpost/internal/cache"
	"github.com/go-xpost/xpost/internal/client"
	"github.com/go-xpost/xpost/internal/config"
	"github.com/go-xpost/xpost/internal/handlers"
	"github.com/go-xpost/xpost/internal/metrics"
	"github.com/go-xpost/xpost/internal/middleware"
	"github.com/go-xpost/xpost/internal/models"
	"github.com/go-xpost/xpost/internal/services"
	"github.com/go-xpost/xpost/internal/store"
	"github.com/go-xpost/xpost/internal/version"
	"github.com/go-xpost/xpost/internal/xapi"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("X video upload service")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the upload server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	// PKCE session cache: memory for single instance, redis for multi-pod
	sessions, sessionsCloser := createSessionCache(cfg)

	httpClient, err := client.NewAPIClient(cfg.UploadTimeout)
	if err != nil {
		log.Fatalf("Failed to create HTTP client: %v", err)
	}

	xClient := xapi.NewClient(httpClient, cfg.XAPIBaseURL, prometheusMetrics)

	provider := auth.NewXProvider(auth.ProviderConfig{
		ClientID:     cfg.XClientID,
		ClientSecret: cfg.XClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		AuthURL:      cfg.XAuthURL,
		TokenURL:     cfg.XTokenURL,
		UserInfoURL:  cfg.XUserInfoURL,
	})
	if !provider.Configured() {
		log.Println("WARNING: X_CLIENT_ID not set; the connect flow will be unavailable")
	}

	runner := services.NewRunner(cfg.MaxConcurrentUploads, prometheusMetrics)
	authService := services.NewAuthService(db, provider, sessions, cfg.SessionTTL, prometheusMetrics)
	uploadService := services.NewUploadService(
		db,
		xClient,
		runner,
		prometheusMetrics,
		cfg.PublishMaxRetries,
		cfg.PublishBaseDelay,
	)

	authHandler := handlers.NewAuthHandler(authService)
	uploadHandler := handlers.NewUploadHandler(uploadService, cfg.MaxUploadSize)
	healthHandler := handlers.NewHealthHandler(db)

	setupGinMode(cfg)
	r := gin.New()
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", healthHandler.Health)

	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	uploadLimiter := setupUploadRateLimiter(cfg)

	api := r.Group("/api")
	{
		api.GET("/auth/status", authHandler.Status)
		api.GET("/auth/connect", authHandler.Connect)
		api.GET("/auth/callback", authHandler.Callback)
		api.POST("/auth/disconnect", authHandler.Disconnect)

		api.POST("/upload", uploadLimiter, uploadHandler.Create)
		api.GET("/uploads", uploadHandler.List)
		api.GET("/uploads/:id", uploadHandler.Get)
	}

	log.Printf("X upload server starting on %s", cfg.ServerAddr)
	log.Printf("OAuth callback URL: %s", cfg.RedirectURL())

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Minute, // large multipart bodies
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}
		return nil
	})

	// Drain in-flight uploads before exiting; records left in processing
	// would otherwise never reach a terminal state.
	m.AddShutdownJob(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownDrainTimeout)
		defer cancel()
		if err := runner.Shutdown(ctx); err != nil {
			log.Printf("Background uploads did not drain: %v", err)
			return err
		}
		log.Println("Background uploads drained")
		return nil
	})

	if sessionsCloser != nil {
		m.AddShutdownJob(func() error {
			return sessionsCloser()
		})
	}

	<-m.Done()
	log.Println("Server stopped")
}

func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
}

func createSessionCache(cfg *config.Config) (cache.Cache[models.PKCESession], func() error) {
	if cfg.SessionCache == config.SessionCacheRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := cache.NewRueidisCache[models.PKCESession](
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			"session:",
		)
		if err != nil {
			log.Fatalf("Failed to initialize redis session cache: %v", err)
		}
		log.Printf("Session cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, c.Close
	}

	log.Println("Session cache: memory (single instance only)")
	return cache.NewMemoryCache[models.PKCESession](), nil
}

func setupUploadRateLimiter(cfg *config.Config) gin.HandlerFunc {
	if !cfg.EnableRateLimit {
		return func(c *gin.Context) { c.Next() }
	}

	storeType := middleware.RateLimitStoreMemory
	if cfg.RateLimitStore == "redis" {
		storeType = middleware.RateLimitStoreRedis
	}

	limiterMW, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.UploadRateLimit,
		StoreType:         storeType,
		RedisAddr:         cfg.RedisAddr,
		RedisPassword:     cfg.RedisPassword,
		RedisDB:           cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("Failed to initialize rate limiter: %v", err)
	}
	log.Printf("Upload rate limiting enabled: %d req/min (%s store)",
		cfg.UploadRateLimit, storeType)
	return limiterMW
}
