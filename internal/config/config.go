package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

var ErrMissingJWTSecret = errors.New("security.jwtsecret must be set")

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// RedisConfig leaves Addr empty to run without the user cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Driver string
}

type CacheConfig struct {
	UserTTL time.Duration
}

type SecurityConfig struct {
	JWTSecret   string
	JWTTTL      time.Duration
	HashTime    uint32
	HashMemory  uint32
	HashThreads uint8
	HashWorkers int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Cache            CacheConfig
	Security         SecurityConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// envAliases binds keys to the variable names the mobile backend has always
// been deployed with, next to the prefixed form.
var envAliases = map[string][]string{
	"security.jwtsecret": {"JWT_SECRET"},
	"security.jwtttl":    {"JWT_EXPIRES_IN"},
	"postgres.dsn":       {"DATABASE_URL"},
	"http.port":          {"PORT"},
	"redis.addr":         {"REDIS_ADDR"},
	"redis.password":     {},
	"environment":        {"APP_ENV"},
}

const envPrefix = "VOLUNTEER"

func Load() (*AppConfig, error) {
	return LoadFrom(".", "./config", "../config")
}

// LoadFrom reads config.yaml from the first of paths that has one, then
// applies environment overrides.
func LoadFrom(paths ...string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			stringToDurationHook(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	if c.Security.JWTTTL <= 0 {
		return fmt.Errorf("security.jwtttl must be positive, got %s", c.Security.JWTTTL)
	}
	if c.Security.HashTime < 1 {
		return fmt.Errorf("security.hashtime must be at least 1, got %d", c.Security.HashTime)
	}
	if c.Security.HashThreads < 1 {
		return fmt.Errorf("security.hashthreads must be at least 1, got %d", c.Security.HashThreads)
	}
	if c.Security.HashMemory < 8*uint32(c.Security.HashThreads) {
		return fmt.Errorf("security.hashmemory must be at least %d KiB for %d threads, got %d",
			8*uint32(c.Security.HashThreads), c.Security.HashThreads, c.Security.HashMemory)
	}
	if c.Security.HashWorkers <= 0 {
		return fmt.Errorf("security.hashworkers must be positive, got %d", c.Security.HashWorkers)
	}
	if c.Cache.UserTTL <= 0 {
		return fmt.Errorf("cache.userttl must be positive, got %s", c.Cache.UserTTL)
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn must be set when storage.driver is postgres")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", StorageDriverPostgres)
	v.SetDefault("cache.userttl", "5m")

	v.SetDefault("security.jwtttl", "7d")
	v.SetDefault("security.hashtime", 3)
	v.SetDefault("security.hashmemory", 64*1024)
	v.SetDefault("security.hashthreads", 2)
	v.SetDefault("security.hashworkers", 4)

	v.SetDefault("allowcorsorigins", []string{})
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ParseDuration accepts everything time.ParseDuration does plus a whole
// number of days such as "7d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func stringToDurationHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return ParseDuration(data.(string))
	}
}
