// config описывает конфигурацию blog-service и загрузку её из YAML/ENV
// с предсказуемым приоритетом источников.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища изображений.
const (
	ImagesDriverMinio = "minio"
	ImagesDriverS3    = "s3"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. только переменные окружения.
//
// Поверх файла всегда накладываются переменные окружения.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Ops      OpsConfig      `yaml:"ops"`
	Auth     AuthConfig     `yaml:"auth"`
	Postgres PostgresConfig `yaml:"postgres"`
	Images   ImagesConfig   `yaml:"images"`
	Redis    RedisConfig    `yaml:"redis"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// HTTPConfig — публичный REST API.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH"`
}

// Addr возвращает адрес в формате host:port.
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// OpsConfig — служебный сервер: /livez, /healthz, /metrics.
type OpsConfig struct {
	Host string `yaml:"host" env:"OPS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"OPS_PORT" env-default:"8081"`
}

// Addr возвращает адрес в формате host:port.
func (c OpsConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AuthConfig — секреты и атрибуты JWT. Время жизни токенов не настраивается.
type AuthConfig struct {
	AccessSecret  string   `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret string   `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	Issuer        string   `yaml:"issuer" env:"JWT_ISSUER" env-default:"blog-service"`
	Audience      []string `yaml:"audience" env:"JWT_AUDIENCE" env-default:"blog-api"`
}

// PostgresConfig — подключение к базе. Миграции применяются на старте,
// если не выставлен SkipMigrate.
type PostgresConfig struct {
	URL         string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
	SkipMigrate bool   `yaml:"skip_migrate" env:"DATABASE_SKIP_MIGRATE"`
}

// ImagesConfig — объектное хранилище изображений постов и аватаров.
type ImagesConfig struct {
	Driver              string        `yaml:"driver" env:"IMAGES_DRIVER" env-default:"minio"`
	Endpoint            string        `yaml:"endpoint" env:"IMAGES_ENDPOINT" env-default:"http://localhost:9000"`
	Region              string        `yaml:"region" env:"IMAGES_REGION" env-default:"us-east-1"`
	AccessKey           string        `yaml:"access_key" env:"IMAGES_ACCESS_KEY"`
	SecretKey           string        `yaml:"secret_key" env:"IMAGES_SECRET_KEY"`
	Bucket              string        `yaml:"bucket" env:"IMAGES_BUCKET" env-default:"blog-images"`
	PublicBaseURL       string        `yaml:"public_base_url" env:"IMAGES_PUBLIC_BASE_URL"`
	PresignTTL          time.Duration `yaml:"presign_ttl" env:"IMAGES_PRESIGN_TTL" env-default:"15m"`
	MaxSizeBytes        int64         `yaml:"max_size_bytes" env:"IMAGES_MAX_SIZE_BYTES" env-default:"5242880"`
	MaxPerPost          int           `yaml:"max_per_post" env:"IMAGES_MAX_PER_POST" env-default:"5"`
	AllowedContentTypes []string      `yaml:"allowed_content_types" env:"IMAGES_ALLOWED_CONTENT_TYPES" env-default:"image/jpeg,image/png,image/webp,image/gif"`
}

// RedisConfig — кэш постов. Пустой URL отключает кэш.
type RedisConfig struct {
	URL string        `yaml:"url" env:"REDIS_URL"`
	TTL time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"5m"`
}

// TimeoutConfig — таймауты обработки запросов и остановки.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := read(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// LoadPostgres читает только секцию postgres из тех же источников.
// Нужна утилитам (setup-db), которым не нужны секреты JWT и хранилища.
func LoadPostgres(path string) (*PostgresConfig, error) {
	const op = "config.LoadPostgres"

	var cfg struct {
		Postgres PostgresConfig `yaml:"postgres"`
	}
	if err := read(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg.Postgres, nil
}

// read заполняет dst из файла (с наложением ENV) или только из ENV.
func read(path string, dst any) error {
	readFile := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		// ReadConfig накладывает ENV поверх значений из файла.
		if err := cleanenv.ReadConfig(p, dst); err != nil {
			return fmt.Errorf("failed to read config %q: %w", p, err)
		}

		return nil
	}

	switch {
	case path != "":
		return readFile(path)
	case os.Getenv("CONFIG_PATH") != "":
		return readFile(os.Getenv("CONFIG_PATH"))
	case fileExists("local.yaml"):
		return readFile("local.yaml")
	default:
		if err := cleanenv.ReadEnv(dst); err != nil {
			return fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
		return nil
	}
}

// validate проверяет инварианты, которые нельзя выразить тегами cleanenv.
func (c *Config) validate() error {
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("auth: access_secret and refresh_secret must differ")
	}

	switch c.Images.Driver {
	case ImagesDriverMinio, ImagesDriverS3:
	default:
		return fmt.Errorf("images: unknown driver %q", c.Images.Driver)
	}

	if c.Images.MaxSizeBytes <= 0 || c.Images.MaxPerPost <= 0 {
		return errors.New("images: max_size_bytes and max_per_post must be positive")
	}

	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
