package config

import (
	"apexfolio-bot-go/internal/models"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file is present.
func Default() *models.Config {
	return &models.Config{
		Server: models.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			AllowedOrigins:  []string{"*"},
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
		},
		Store: models.StoreConfig{
			Driver: "badger",
			Path:   "data/apexfolio",
			Redis: models.RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "apexfolio:",
			},
		},
		Client: models.ClientConfig{
			BaseURL:    "http://localhost:8080",
			TimeoutSec: 10,
		},
		Log: models.LogConfig{
			Level:      "info",
			Output:     "console",
			File:       "logs/apexfolio.log",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadConfig reads a JSON or YAML config file (chosen by extension) on top of
// Default and then applies environment overrides. A missing file is not an error.
func LoadConfig(path string) (*models.Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *models.Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *models.Config) {
	if v := os.Getenv("APEXFOLIO_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("APEXFOLIO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("APEXFOLIO_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("APEXFOLIO_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("APEXFOLIO_REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("APEXFOLIO_REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("APEXFOLIO_SERVER_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("APEXFOLIO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects configurations that cannot start.
func Validate(cfg *models.Config) error {
	switch cfg.Store.Driver {
	case "badger", "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", cfg.Store.Driver)
		}
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for driver redis")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return nil
}
