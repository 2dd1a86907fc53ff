package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnquangdev/call-insight/internal/adapter/handler"
	"github.com/johnquangdev/call-insight/internal/adapter/repository"
	"github.com/johnquangdev/call-insight/internal/adapter/repository/memory"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
	"github.com/johnquangdev/call-insight/internal/infrastructure/cache"
	"github.com/johnquangdev/call-insight/internal/infrastructure/database"
	"github.com/johnquangdev/call-insight/internal/infrastructure/external/oauth"
	"github.com/johnquangdev/call-insight/internal/infrastructure/external/speech"
	httpmw "github.com/johnquangdev/call-insight/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/call-insight/internal/infrastructure/storage"
	"github.com/johnquangdev/call-insight/internal/usecase/analysis"
	"github.com/johnquangdev/call-insight/internal/usecase/analytics"
	"github.com/johnquangdev/call-insight/internal/usecase/auth"
	"github.com/johnquangdev/call-insight/internal/usecase/invitation"
	"github.com/johnquangdev/call-insight/internal/usecase/recording"
	"github.com/johnquangdev/call-insight/internal/usecase/template"
	"github.com/johnquangdev/call-insight/internal/usecase/transcription"
	"github.com/johnquangdev/call-insight/internal/usecase/user"
	pkgai "github.com/johnquangdev/call-insight/pkg/ai"
	"github.com/johnquangdev/call-insight/pkg/config"
	"github.com/johnquangdev/call-insight/pkg/jwt"
	"github.com/johnquangdev/call-insight/pkg/retry"
	pkgvalidator "github.com/johnquangdev/call-insight/pkg/validator"
)

// @title           Call Insight API
// @version         1.0
// @description     Multi-tenant call recording, transcription and conversation analytics.

// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const sessionSweepInterval = time.Hour

// repos is the persistence layer selected by DB_DRIVER.
type repos struct {
	orgs           repositories.OrganizationRepository
	users          repositories.UserRepository
	sessions       repositories.SessionRepository
	recordings     repositories.RecordingRepository
	transcriptions repositories.TranscriptionRepository
	analyses       repositories.AnalysisRepository
	analytics      repositories.AnalyticsRepository
	templates      repositories.TemplateRepository
	invitations    repositories.InvitationRepository
}

func postgresRepos(db *gorm.DB) repos {
	analyses := repository.NewAnalysisRepository(db)
	return repos{
		orgs:           repository.NewOrganizationRepository(db),
		users:          repository.NewUserRepository(db),
		sessions:       repository.NewSessionRepository(db),
		recordings:     repository.NewRecordingRepository(db),
		transcriptions: repository.NewTranscriptionRepository(db),
		analyses:       analyses,
		analytics:      analyses,
		templates:      repository.NewTemplateRepository(db),
		invitations:    repository.NewInvitationRepository(db),
	}
}

func memoryRepos(s *memory.Store) repos {
	analyses := s.Analyses()
	return repos{
		orgs:           s.Organizations(),
		users:          s.Users(),
		sessions:       s.Sessions(),
		recordings:     s.Recordings(),
		transcriptions: s.Transcriptions(),
		analyses:       analyses,
		analytics:      analyses,
		templates:      s.Templates(),
		invitations:    s.Invitations(),
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	var (
		r      repos
		dbPing handler.Pinger
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("database.memory", zap.String("reason", "DB_DRIVER=memory, data is lost on restart"))
		r = memoryRepos(memory.NewStore())
	default:
		db, err := database.NewPostgresDB(cfg, logger)
		if err != nil {
			logger.Fatal("database.connect_failed", zap.Error(err))
		}
		defer database.CloseDB(db)

		if cfg.Database.AutoMigrate {
			n, err := database.Migrate(db, cfg.Database.MigrationsDir, database.Up, 0)
			if err != nil {
				logger.Fatal("database.migrate_failed", zap.Error(err))
			}
			logger.Info("database.migrated", zap.Int("applied", n))
		}
		r = postgresRepos(db)
		dbPing = database.Pinger{DB: db}
	}

	// Cache for OAuth state, presigned URLs and analytics rollups
	var store cache.Store
	if cfg.Redis.Enabled {
		rs, err := cache.NewRedisStore(ctx, cfg)
		if err != nil {
			logger.Fatal("redis.connect_failed", zap.Error(err))
		}
		store = rs
	} else {
		store = cache.NewMemoryStore()
	}
	defer store.Close()

	// External providers
	objects, err := storage.New(ctx, &cfg.Storage, logger)
	if err != nil {
		logger.Fatal("storage.init_failed", zap.Error(err))
	}
	recognizer, err := speech.New(ctx, &cfg.Speech, logger)
	if err != nil {
		logger.Fatal("speech.init_failed", zap.Error(err))
	}

	var analyzer analysis.Analyzer
	if cfg.LLM.APIKey != "" {
		analyzer = analysis.NewLLMAnalyzer(pkgai.NewGroqClient(&cfg.LLM), logger)
	}

	// Services
	tokens := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	var authOpts []auth.Option
	if cfg.OAuth.Google.Enabled() {
		authOpts = append(authOpts, auth.WithGoogle(oauth.NewGoogleProvider(cfg.OAuth.Google), oauth.NewStateManager(store)))
	}
	authSvc := auth.NewService(r.orgs, r.users, r.sessions, tokens, logger, authOpts...)

	engine := transcription.NewEngine(r.recordings, r.transcriptions, recognizer, logger,
		transcription.WithPolicy(retry.Exponential(time.Second, cfg.Speech.MaxAttempts)))
	recordingSvc := recording.NewService(r.recordings, r.transcriptions, objects, engine, store, recording.Config{
		PresignExpiry:  cfg.Storage.PresignExpiry,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
	}, logger)
	analysisSvc := analysis.NewService(r.recordings, r.transcriptions, r.analyses, r.templates, analyzer, logger)

	handlers := handler.Handlers{
		Auth:        handler.NewAuth(authSvc, logger, cfg.IsProduction(), cfg.JWT.RefreshExpiry),
		Users:       handler.NewUser(user.NewService(r.users, r.orgs, r.sessions, logger), logger),
		Recordings:  handler.NewRecording(recordingSvc, analysisSvc, cfg.Storage.MaxUploadBytes(), logger),
		Templates:   handler.NewTemplate(template.NewService(r.templates, logger), logger),
		Invitations: handler.NewInvitation(invitation.NewService(r.invitations, r.users, r.orgs, authSvc.HashPassword, logger), logger),
		Analytics:   handler.NewAnalytics(analytics.NewService(r.analytics, r.users, store, cfg.Analytics.CacheTTL, logger), logger),
	}

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Validator = pkgvalidator.New()

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("http.request",
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	// Uploads carry their own, larger limit on the route.
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: "2M",
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodPost && strings.HasSuffix(c.Path(), "/recordings")
		},
	}))

	router := handler.NewRouter(handler.RouterConfig{
		AuthRateLimit:  cfg.Server.AuthRateLimit,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
	}, handlers, httpmw.NewAuthMiddleware(authSvc), handler.Health{
		Environment: cfg.Server.Environment,
		Database:    dbPing,
		Storage:     objects.Name(),
		Speech:      engine.ProviderName(),
		Analyzer:    analysisSvc.AnalyzerName(),
	}, logger)
	router.Setup(e)

	go sweepSessions(ctx, r.sessions, logger)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("server.starting",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
			zap.String("database", cfg.Database.Driver),
			zap.String("storage", objects.Name()),
			zap.String("speech", engine.ProviderName()),
			zap.String("analyzer", analysisSvc.AnalyzerName()))

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server.start_failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.forced_shutdown", zap.Error(err))
		return
	}
	logger.Info("server.stopped")
}

// sweepSessions deletes expired refresh sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, sessions repositories.SessionRepository, logger *zap.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := sessions.DeleteExpired(ctx, now)
			if err != nil {
				logger.Warn("sessions.sweep_failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("sessions.swept", zap.Int64("deleted", n))
			}
		}
	}
}
