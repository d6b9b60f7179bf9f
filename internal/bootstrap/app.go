package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	authapi "docmgmt-backend/internal/auth"
	"docmgmt-backend/internal/documents"
	"docmgmt-backend/internal/ingestion"
	"docmgmt-backend/internal/permissions"
	"docmgmt-backend/internal/services/health"
	"docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/shared/config"
	"docmgmt-backend/internal/shared/server"
	"docmgmt-backend/internal/shared/server/middleware"
	"docmgmt-backend/internal/shared/storage/db"
	"docmgmt-backend/internal/shared/storage/object"
	localstore "docmgmt-backend/internal/shared/storage/object/local"
	s3store "docmgmt-backend/internal/shared/storage/object/s3"
	"docmgmt-backend/internal/shared/telemetry"
	"docmgmt-backend/internal/users"
)

// devJWTSecret signs tokens in dev-like environments when JWT_SECRET is unset.
const devJWTSecret = "dev-only-insecure-secret"

// App holds shared dependencies and the wired router.
type App struct {
	Config             config.Config
	Router             *gin.Engine
	DB                 *sql.DB
	Redis              *redis.Client
	Store              object.ObjectStore
	Tokens             *auth.Issuer
	UsersService       *users.Service
	AuthService        *authapi.Service
	PermissionsService *permissions.Service
	DocumentsService   *documents.Service
	IngestionService   *ingestion.Service
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := buildIssuer(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := buildRedis(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Redis:  redisClient,
		Store:  store,
		Tokens: tokens,
	}

	deps, err := buildServices(app)
	if err != nil {
		return nil, err
	}
	app.Router = server.NewRouter(deps)
	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{
				"fallback": "memory",
				"error":    err,
			})
			return nil, nil
		}
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.UploadDir)
	}
}

func buildIssuer(cfg config.Config) (*auth.Issuer, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		if !config.IsDevLike(cfg.Env) {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		telemetry.Warn("bootstrap.jwt_secret_missing", map[string]any{"env": cfg.Env})
		secret = devJWTSecret
	}
	return auth.NewIssuer(secret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

func buildRedis(cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func buildServices(app *App) (server.RouterDeps, error) {
	var (
		userRepo users.Repo
		docRepo  documents.DocumentsRepo
		permRepo permissions.Repo
		memPerms *permissions.MemoryRepo
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
		permRepo = &permissions.PGRepo{DB: app.DB}
	} else {
		memPerms = permissions.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
		permRepo = memPerms
	}

	userSvc := users.NewService(userRepo)
	if memPerms != nil {
		// Postgres cascades permission rows on user delete.
		userSvc.OnDelete = memPerms.DeleteForUser
	}

	authSvc, err := authapi.NewService(userSvc, app.Tokens)
	if err != nil {
		return server.RouterDeps{}, err
	}
	permSvc := permissions.NewService(permRepo, userSvc)
	docSvc := documents.NewService(app.Store, docRepo)
	ingestSvc := ingestion.NewService(app.Config.IngestionURL, app.Config.IngestionTimeout)

	app.UsersService = userSvc
	app.AuthService = authSvc
	app.PermissionsService = permSvc
	app.DocumentsService = docSvc
	app.IngestionService = ingestSvc

	var limiter middleware.Limiter
	if app.Redis != nil {
		limiter = middleware.NewRedisRateLimiter(app.Redis, "docmgmt:ratelimit:")
	}

	return server.RouterDeps{
		Config:            app.Config,
		Verifier:          app.Tokens,
		Limiter:           limiter,
		Health:            health.NewService(healthPinger(app.DB)),
		AuthHandler:       authapi.NewHandler(authSvc),
		GoogleAuth:        authapi.NewGoogleService(app.Config.GoogleClientID, app.Config.GoogleClientSecret, app.Config.GoogleRedirectURL, app.Config.UIRedirectURL, authSvc),
		UserHandler:       users.NewHandler(userSvc),
		PermissionHandler: permissions.NewHandler(permSvc),
		DocumentHandler:   documents.NewHandler(docSvc, app.Config.MaxUploadBytes),
		IngestionHandler:  ingestion.NewHandler(ingestSvc),
	}, nil
}

// healthPinger avoids handing a typed nil *sql.DB to the health service.
func healthPinger(sqlDB *sql.DB) health.Pinger {
	if sqlDB == nil {
		return nil
	}
	return sqlDB
}
