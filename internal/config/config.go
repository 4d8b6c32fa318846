// config - источник загрузки конфигурации roster-share.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// Перед чтением подгружается .env из рабочего каталога, если он есть;
// уже заданные переменные окружения он не перезаписывает.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Драйверы хранилища токенов.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Env          string        `yaml:"env"           env:"ENV"           env-default:"local"`
	PublicOrigin string        `yaml:"public_origin" env:"PUBLIC_ORIGIN" env-default:"http://localhost:8080"`
	HTTP         HTTPConfig    `yaml:"http"`
	Remote       RemoteConfig  `yaml:"remote"`
	Session      SessionConfig `yaml:"session"`
	Store        StoreConfig   `yaml:"store"`
	CORS         CORSConfig    `yaml:"cors"`
	Timeouts     TimeoutConfig `yaml:"timeouts"`
}

// HTTPConfig - веб-сервер страниц и JSON API.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// RemoteConfig - удалённый сервис ростеров.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url" env:"REMOTE_BASE_URL" env-default:"http://localhost:8000"`
}

// SessionConfig - жизненный цикл токенов.
type SessionConfig struct {
	// RefreshThreshold - за сколько до exp обновлять пару.
	RefreshThreshold time.Duration `yaml:"refresh_threshold" env:"SESSION_REFRESH_THRESHOLD" env-default:"5m"`
	// ViewTTL - сколько живёт загруженный ростер share-страницы.
	ViewTTL time.Duration `yaml:"view_ttl" env:"SESSION_VIEW_TTL" env-default:"5m"`
}

// StoreConfig - хранилище пары токенов.
type StoreConfig struct {
	Driver      string `yaml:"driver"       env:"STORE_DRIVER"       env-default:"sqlite"`
	SQLitePath  string `yaml:"sqlite_path"  env:"STORE_SQLITE_PATH"  env-default:"data/roster-share.db"`
	RedisURL    string `yaml:"redis_url"    env:"STORE_REDIS_URL"    env-default:"redis://localhost:6379/0"`
	RedisPrefix string `yaml:"redis_prefix" env:"STORE_REDIS_PREFIX" env-default:"roster-share:"`
	PostgresDSN string `yaml:"postgres_dsn" env:"STORE_POSTGRES_DSN"`
}

// CORSConfig - разрешённые источники для /api. Пустой список - CORS выключен.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// TimeoutConfig - таймауты запросов и остановки.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service"  env:"TIMEOUT_SERVICE"  env-default:"15s"`
	Shutdown time.Duration `yaml:"shutdown" env:"TIMEOUT_SHUTDOWN" env-default:"10s"`
}

// Validate проверяет значения, которые нельзя выразить тегами.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite, StoreRedis:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if strings.TrimSpace(c.PublicOrigin) == "" {
		return errors.New("public_origin is required")
	}

	if strings.TrimSpace(c.Remote.BaseURL) == "" {
		return errors.New("remote.base_url is required")
	}

	return nil
}

// MustLoad - паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}
