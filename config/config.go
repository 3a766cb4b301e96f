package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Live     LiveConfig
	AWS      AWSConfig
	Admin    AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/debate?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// LiveConfig holds the live-session and voting rules.
type LiveConfig struct {
	VoteWindowOpenSec  int
	VoteWindowCloseSec int
	AutoStopSec        int
	AudienceWeight     int
	DefaultJudgeWeight int
	DefaultJudgeCount  int
	HeartbeatSec       int
	EventChannel       string // Redis channel mirroring real-time events
}

// AWSConfig holds AWS credentials and the judge avatar bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AvatarBucket         string
	PresignExpireMinutes int
}

// AdminConfig is the bootstrap operator account created on first start.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// VoteWindowOpen is the offset after live start when participant votes are first admitted.
func (c LiveConfig) VoteWindowOpen() time.Duration {
	return time.Duration(c.VoteWindowOpenSec) * time.Second
}

// VoteWindowClose is the offset after live start after which votes are rejected.
func (c LiveConfig) VoteWindowClose() time.Duration {
	return time.Duration(c.VoteWindowCloseSec) * time.Second
}

// AutoStop is the delay after which a live stream is stopped unconditionally.
func (c LiveConfig) AutoStop() time.Duration {
	return time.Duration(c.AutoStopSec) * time.Second
}

// Heartbeat is the WebSocket ping interval.
func (c LiveConfig) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSec) * time.Second
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "debate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Live: LiveConfig{
			VoteWindowOpenSec:  getEnvInt("LIVE_VOTE_WINDOW_OPEN_SEC", 45),
			VoteWindowCloseSec: getEnvInt("LIVE_VOTE_WINDOW_CLOSE_SEC", 60),
			AutoStopSec:        getEnvInt("LIVE_AUTO_STOP_SEC", 60),
			AudienceWeight:     getEnvInt("LIVE_AUDIENCE_WEIGHT", 2),
			DefaultJudgeWeight: getEnvInt("LIVE_DEFAULT_JUDGE_WEIGHT", 10),
			DefaultJudgeCount:  getEnvInt("LIVE_DEFAULT_JUDGE_COUNT", 3),
			HeartbeatSec:       getEnvInt("LIVE_HEARTBEAT_SEC", 30),
			EventChannel:       getEnv("LIVE_EVENT_CHANNEL", "debate:live-events"),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AvatarBucket:         getEnv("AWS_S3_AVATAR_BUCKET", "debate-judge-avatars"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@example.com"),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Administrator"),
		},
	}
	if cfg.Live.VoteWindowCloseSec < cfg.Live.VoteWindowOpenSec {
		return nil, fmt.Errorf("vote window closes (%ds) before it opens (%ds)", cfg.Live.VoteWindowCloseSec, cfg.Live.VoteWindowOpenSec)
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// AllowedOrigins returns the configured CORS origins as a list.
func (c ServerConfig) AllowedOrigins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
