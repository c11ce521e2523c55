// config - источник загрузки конфигурации клиента MyData (mydatactl).
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Reports   ReportsConfig   `yaml:"reports"`
}

// APIConfig — адрес бэкенда MyData.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"   env:"API_BASE_URL"   env-default:"http://localhost:5000/api/v1"`
	UserAgent string `yaml:"user_agent" env:"API_USER_AGENT" env-default:"mydatactl"`
}

// Бэкенды хранилища сессии.
const (
	SessionBackendFile   = "file"
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// SessionConfig — где хранится состояние сессии.
type SessionConfig struct {
	Backend     string `yaml:"backend"      env:"SESSION_BACKEND"      env-default:"file"`
	Path        string `yaml:"path"         env:"SESSION_PATH"`
	RedisURL    string `yaml:"redis_url"    env:"SESSION_REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"SESSION_REDIS_PREFIX" env-default:"mydata:session:"`
}

// FilePath — путь файла сессии; по умолчанию <UserConfigDir>/mydata/session.json.
func (s SessionConfig) FilePath() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config/SessionConfig.FilePath: %w", err)
	}

	return filepath.Join(dir, "mydata", "session.json"), nil
}

// AlertsConfig — периодическое обновление алертов.
type AlertsConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"ALERTS_POLL_INTERVAL" env-default:"30s"`
}

// MetricsConfig — отправка клиентских метрик в Prometheus Pushgateway.
// Пустой PushURL — метрики не отправляются.
type MetricsConfig struct {
	PushURL string `yaml:"push_url" env:"METRICS_PUSH_URL"`
	Job     string `yaml:"job"      env:"METRICS_JOB" env-default:"mydatactl"`
}

// TelemetryConfig — экспорт трейсов по OTLP/gRPC. Пустой endpoint — no-op.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool   `yaml:"insecure"      env:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `yaml:"service_name"  env:"OTEL_SERVICE_NAME"           env-default:"mydatactl"`
}

// ReportsConfig — куда выгружаются отчёты анализа политики.
// Если задан S3.Bucket — в объектное хранилище, иначе в каталог Dir.
type ReportsConfig struct {
	Dir string   `yaml:"dir" env:"REPORTS_DIR" env-default:"."`
	S3  S3Config `yaml:"s3"`
}

// S3Config — MinIO/S3 для отчётов.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"   env:"S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Bucket    string `yaml:"bucket"     env:"S3_BUCKET"`
}

// Enabled — выгрузка в S3 настроена.
func (s S3Config) Enabled() bool { return s.Endpoint != "" && s.Bucket != "" }

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
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

		return validate(&cfg)
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

	return validate(&cfg)
}

func validate(cfg *Config) (*Config, error) {
	switch cfg.Session.Backend {
	case SessionBackendFile, SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.Session.RedisURL == "" {
			return nil, fmt.Errorf("session.redis_url is required for the redis backend")
		}
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	if cfg.Alerts.PollInterval <= 0 {
		return nil, fmt.Errorf("alerts.poll_interval must be positive")
	}

	return cfg, nil
}
