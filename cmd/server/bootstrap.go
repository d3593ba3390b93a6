package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vitalboard/server/internal/api"
	"github.com/vitalboard/server/internal/app"
	"github.com/vitalboard/server/internal/app/maintenance"
	iauth "github.com/vitalboard/server/internal/auth"
	"github.com/vitalboard/server/internal/credentials"
	"github.com/vitalboard/server/internal/database"
	"github.com/vitalboard/server/internal/records"
	"github.com/vitalboard/server/internal/secrets"
	"github.com/vitalboard/server/internal/services"
	"github.com/vitalboard/server/pkg/logger"
	"github.com/vitalboard/server/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Secrets  *secrets.RedisStore
	Profiles *services.ProfileService
	Sweeper  *maintenance.Sweeper
	Router   *gin.Engine
}

// bootstrapRuntime initialises stores, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Secrets, err = secrets.NewRedisStore(ctx, cfg.Secrets.RedisStoreConfig(), cfg.Secrets.Redis.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("connect secret store: %w", err)
	}
	log.Info("secret store connected", zap.String("addr", cfg.Secrets.Redis.Address))

	recordStore, err := initialiseRecordStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	creds, err := credentials.NewService(recordStore, stack.Secrets, jwtSvc, mailer,
		credentials.WithCodeTTL(cfg.Auth.Verification.CodeTTL))
	if err != nil {
		return nil, fmt.Errorf("initialise credential service: %w", err)
	}

	stack.Profiles, err = services.NewProfileService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise profile service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Sweeper, err = maintenance.NewSweeper(recordStore,
			maintenance.WithSchedule(cfg.Maintenance.Schedule))
		if err != nil {
			return nil, fmt.Errorf("initialise maintenance sweeper: %w", err)
		}
		if err := stack.Sweeper.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Deps{
		Credentials: creds,
		Profiles:    stack.Profiles,
		JWT:         jwtSvc,
		Cookies: iauth.CookieWriter{
			Secure: cfg.Server.SecureCookies,
			MaxAge: cfg.Auth.JWT.SessionTTL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Sweeper != nil {
		s.Sweeper.Stop()
	}

	if s.Profiles != nil {
		if err := s.Profiles.Flush(ctx); err != nil {
			log.Warn("profile flush on shutdown failed", zap.Error(err))
		}
	}

	if s.Secrets != nil {
		if err := s.Secrets.Close(); err != nil {
			log.Warn("secret store shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Prepare(cfg.Database.DatabaseOptions())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(cfg.Database.Driver))))

	return db, nil
}

func initialiseRecordStore(ctx context.Context, cfg *app.Config, log *zap.Logger) (records.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Records.Driver)) {
	case "memory":
		log.Warn("using in-memory record store; accounts will not survive restarts")
		return records.NewMemoryStore(), nil
	case "", "s3":
		store, err := records.NewS3Store(ctx, cfg.Records.S3StoreConfig())
		if err != nil {
			return nil, fmt.Errorf("connect record store: %w", err)
		}
		log.Info("record store connected", zap.String("bucket", cfg.Records.S3.Bucket))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported records driver %q", cfg.Records.Driver)
	}
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
