// Package config loads server configuration from the environment and an
// optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/handsomefox/media-tracker/internal/env"
)

type Config struct {
	Env      env.Environment `mapstructure:"env"`
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Log      LogConfig       `mapstructure:"log"`
	TMDB     TMDBConfig      `mapstructure:"tmdb"`
	Jikan    JikanConfig     `mapstructure:"jikan"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Cache    CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port        string        `mapstructure:"port"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TMDBConfig struct {
	APIKey    string `mapstructure:"api_key"`
	ReadToken string `mapstructure:"read_token"`
	BaseURL   string `mapstructure:"base_url"`
	ImageBase string `mapstructure:"image_base"`
}

type JikanConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// DevJWTSecret signs tokens when running locally without JWT_SECRET.
const DevJWTSecret = "local-development-secret"

var envBindings = map[string]string{
	"env":                   env.Key,
	"server.port":           "PORT",
	"server.cors_origins":   "CORS_ORIGINS",
	"server.http_timeout":   "HTTP_TIMEOUT",
	"database.path":         "DB_PATH",
	"log.level":             "LOG_LEVEL",
	"tmdb.api_key":          "TMDB_API_KEY",
	"tmdb.read_token":       "TMDB_API_READ_TOKEN",
	"tmdb.base_url":         "TMDB_BASE_URL",
	"tmdb.image_base":       "TMDB_IMAGE_BASE",
	"jikan.base_url":        "JIKAN_BASE_URL",
	"jikan.rate_per_second": "JIKAN_RATE_PER_SECOND",
	"jikan.burst":           "JIKAN_BURST",
	"auth.jwt_secret":       "JWT_SECRET",
	"auth.issuer":           "JWT_ISSUER",
	"cache.ttl":             "CACHE_TTL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", string(env.Local))
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.http_timeout", 10*time.Second)
	v.SetDefault("database.path", "data/media-tracker.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.image_base", "https://image.tmdb.org/t/p/w342")
	v.SetDefault("jikan.base_url", "https://api.jikan.moe/v4")
	v.SetDefault("jikan.rate_per_second", 3.0)
	v.SetDefault("jikan.burst", 3)
	v.SetDefault("auth.issuer", "media-tracker")
	v.SetDefault("cache.ttl", time.Hour)
}

// Load reads defaults, then config.yaml from any of dirs, then environment
// variables, each overriding the previous.
func Load(dirs ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	if len(dirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	for key, name := range envBindings {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Env = env.Parse(string(c.Env))
	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, o := range c.Server.CORSOrigins {
		for part := range strings.SplitSeq(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	c.Server.CORSOrigins = origins
	if c.Auth.JWTSecret == "" && !c.Env.IsProduction() {
		c.Auth.JWTSecret = DevJWTSecret
	}
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.TMDB.APIKey) == "" && strings.TrimSpace(c.TMDB.ReadToken) == "" {
		errs = append(errs, errors.New("TMDB_API_KEY or TMDB_API_READ_TOKEN is required"))
	}
	if c.Env.IsProduction() && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if c.Jikan.RatePerSecond <= 0 {
		errs = append(errs, errors.New("JIKAN_RATE_PER_SECOND must be positive"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return ":" + c.Server.Port
}
