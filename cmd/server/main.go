package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"intake/internal/cache"
	"intake/internal/config"
	"intake/internal/handler"
	"intake/internal/logging"
	"intake/internal/repository"
	"intake/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Configure(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.Default()

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Listing intake service")

	gin.SetMode(cfg.Server.GinMode)
	ctx := context.Background()

	// Audit database is optional; without it extractions are not logged
	var audit service.AuditStore
	if cfg.PostgreSQL.Enabled {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer repo.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare audit schema")
		}
		audit = repo
		log.Info().Msg("✅ Connected to PostgreSQL database")
	} else {
		log.Warn().Msg("⚠️  PostgreSQL is disabled - extractions and submissions will not be audited")
	}

	var redisCache *cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err = cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Redis unavailable - catalogs will be fetched on every request")
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info().Str("addr", cfg.Redis.Addr).Msg("✅ Connected to Redis")
		}
	}

	var embedder service.Embedder
	if cfg.OpenAI.Enabled {
		embedder = service.NewOpenAIClient(&cfg.OpenAI)
		log.Info().
			Str("api_base", cfg.OpenAI.APIBase).
			Str("chat_model", cfg.OpenAI.ChatModel).
			Str("embedding_model", cfg.OpenAI.EmbeddingModel).
			Msg("✅ OpenAI client initialized")
	} else {
		log.Warn().Msg("⚠️  OpenAI is disabled - similar extraction search will not work")
	}

	extractor, err := service.NewExtractor(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Extraction.Provider).Msg("Failed to initialize extraction provider")
	}

	// Initialize services
	backend := service.NewBackendClient(&cfg.Backend, nil)
	catalogs := service.NewCatalogService(backend, redisCache, cfg.Redis.CatalogTTL)
	locations := service.NewLocationClient(backend, redisCache, cfg.Redis.LocationTTL, cfg.Reconcile.LocationLimit)
	reconciler := service.NewReconciler(locations, &cfg.Reconcile)
	extractions := service.NewExtractionService(extractor, embedder, audit)
	sessions := service.NewSessionStore(extractions, reconciler, catalogs, backend, audit)
	messages := service.NewMessageService(backend, &cfg.Messages)

	log.Info().Str("provider", extractor.Name()).Msg("✅ Services initialized")

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "listing-intake",
			"provider":   extractor.Name(),
			"audit":      audit != nil,
			"sessions":   sessions.Len(),
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	handler.RegisterRoutes(router, &handler.Handlers{
		Extraction: handler.NewExtractionHandler(extractions),
		Search:     handler.NewSearchHandler(extractions, cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
		Feedback:   handler.NewFeedbackHandler(extractions),
		Embedding:  handler.NewEmbeddingHandler(extractions),
		Reconcile:  handler.NewReconcileHandler(reconciler),
		Catalog:    handler.NewCatalogHandler(catalogs, locations),
		Session:    handler.NewSessionHandler(sessions),
		Message:    handler.NewMessageHandler(messages),
	})

	setupStaticFiles(router, cfg.Server.AdminUIDir)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, sessions, cfg.Sessions)

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("🚀 Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shut down")
	}
	log.Info().Msg("✅ Server stopped")
}

// requestLogger attaches a request-scoped logger and logs each request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		logger := logging.Default().With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), &logger))

		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// sweepSessions closes idle editing sessions until ctx is done
func sweepSessions(ctx context.Context, sessions *service.SessionStore, cfg config.SessionConfig) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Expire(ctx, cfg.IdleTimeout); n > 0 {
				logging.Info().Int("expired", n).Msg("🔧 Closed idle sessions")
			}
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
