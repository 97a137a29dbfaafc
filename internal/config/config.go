package config

import (
	"os"
	"strconv"

	"github.com/samber/lo"

	"github.com/JunaYa/ferriskey/internal/logx"
)

var configLogger = logx.GetScope("config")

// Config holds the application configuration
type Config struct {
	AppEnv string
	Server struct {
		Addr     string
		RootPath string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text, json
	}
	PG struct {
		URL          string
		MaxOpenConns int
		MaxIdleConns int
	}
	Auth struct {
		Algo         string // HS256 | RS256
		HSSecret     string
		RSPublicKey  string // PEM
		RSPrivateKey string // PEM, only needed for signing
		Issuer       string
		Audience     string
		AccessMin    int
	}
	RateLimit struct {
		WindowSec int
		Max       int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	MQ struct {
		URL      string // RabbitMQ URL
		Exchange string
	}
	ES struct {
		Addrs    string // comma separated
		Username string
		Password string
	}
	Apollo struct {
		Enable    bool
		AppID     string
		Cluster   string
		Namespace string
		Addrs     string
		AccessKey string
	}
}

// Load loads config from env, and if enabled, overrides with Apollo values.
// Returns config, store, optional apollo closer, and error.
func Load() (*Config, *Store, func(), error) {
	cfg := &Config{}

	// env defaults
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Server.Addr = getEnv("SERVER_ADDR", ":8080")
	cfg.Server.RootPath = getEnv("SERVER_ROOT_PATH", "")
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "text")
	cfg.PG.URL = getEnv("POSTGRES_URL", "")
	cfg.PG.MaxOpenConns = getInt("PG_MAX_OPEN", 10)
	cfg.PG.MaxIdleConns = getInt("PG_MAX_IDLE", 5)

	// Token verification
	cfg.Auth.Algo = getEnv("JWT_ALGO", "HS256")
	cfg.Auth.HSSecret = getEnv("JWT_HS_SECRET", "")
	cfg.Auth.RSPublicKey = getEnv("JWT_RS_PUBLIC_KEY", "")
	cfg.Auth.RSPrivateKey = getEnv("JWT_RS_PRIVATE_KEY", "")
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", "ferriskey")
	cfg.Auth.Audience = getEnv("JWT_AUDIENCE", "ferriskey")
	cfg.Auth.AccessMin = getInt("JWT_ACCESS_MIN", 15)

	// Rate limiting
	cfg.RateLimit.WindowSec = getInt("RATE_WINDOW_SEC", 60)
	cfg.RateLimit.Max = getInt("RATE_MAX", 300)

	// Redis
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)

	// RabbitMQ
	cfg.MQ.URL = getEnv("RABBITMQ_URL", "")
	cfg.MQ.Exchange = getEnv("RABBITMQ_EXCHANGE", "identity.events")

	// Elasticsearch
	cfg.ES.Addrs = getEnv("ES_ADDRS", "")
	cfg.ES.Username = getEnv("ES_USERNAME", "")
	cfg.ES.Password = getEnv("ES_PASSWORD", "")

	cfg.Apollo.Enable = getBool("APOLLO_ENABLE", false)
	cfg.Apollo.AppID = getEnv("APOLLO_APP_ID", "")
	cfg.Apollo.Cluster = getEnv("APOLLO_CLUSTER", "default")
	cfg.Apollo.Namespace = getEnv("APOLLO_NAMESPACE", "application")
	cfg.Apollo.Addrs = getEnv("APOLLO_ADDRS", "")
	cfg.Apollo.AccessKey = getEnv("APOLLO_ACCESS_KEY", "")

	store := NewStore(cfg)

	if cfg.Apollo.Enable {
		closer, err := overrideFromApollo(cfg, store)
		if err != nil {
			configLogger.Sugar().Errorf("apollo override failed: %v", err)
			return cfg, store, closer, err
		}
		return cfg, store, closer, nil
	}

	return cfg, store, nil, nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	return lo.Ternary(v != "", v, def)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
