package handlers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"volunteerhub/api/internal/cache"
	"volunteerhub/api/internal/config"
	"volunteerhub/api/internal/middleware"
	"volunteerhub/api/internal/repository"
	"volunteerhub/api/internal/security"
	"volunteerhub/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	tokens      *security.TokenIssuer
	users       repository.UserRepository
	userCache   middleware.UserCache
	db          *pgxpool.Pool
	cache       *redis.Client
}

// NewHandlerSet wires the auth stack for cfg.Storage.Driver. db may be nil
// for the memory driver and redisClient may be nil to run without a cache.
func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, cfg *config.AppConfig) (HandlerSet, error) {
	var users repository.UserRepository
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		if db == nil {
			return HandlerSet{}, errors.New("postgres storage requires a connection pool")
		}
		users = repository.NewPostgresUserRepository(db)
	case config.StorageDriverMemory:
		users = repository.NewMemoryUserRepository()
	default:
		return HandlerSet{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	tokens, err := security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.JWTTTL)
	if err != nil {
		return HandlerSet{}, fmt.Errorf("token issuer: %w", err)
	}

	params := security.DefaultArgon2Params
	params.Time = cfg.Security.HashTime
	params.Memory = cfg.Security.HashMemory
	params.Threads = cfg.Security.HashThreads
	hasher := security.NewHasher(params, cfg.Security.HashWorkers)

	credentials := service.NewCredentials(users, hasher)

	h := HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: service.NewAuthService(credentials, tokens, log.With().Str("component", "auth").Logger()),
		tokens:      tokens,
		users:       users,
		db:          db,
		cache:       redisClient,
	}
	if redisClient != nil {
		h.userCache = cache.NewUserCache(redisClient, cfg.Cache.UserTTL)
	}
	return h, nil
}

// Mount registers the API routes on router.
func (h HandlerSet) Mount(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.GET("/test", h.APITest)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
	}

	users := router.Group("/users")
	users.Use(middleware.Auth(h.tokens, h.users, h.userCache, h.log))
	{
		users.GET("/me", h.Me)
	}
}
