package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stitchdesk/stitchdesk/internal/models"
)

type Config struct {
	Env        string
	ServerPort int
	AppURL     string

	DatabaseURL string

	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	UploadDir   string
	ContentsDir string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string

	ProviderURL   string
	ProviderKey   string
	ProviderModel string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		Env:        EnvDefault("APP_ENV", "development"),
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		AppURL:     EnvDefault("APP_URL", "http://localhost:8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		AccessSecret:  []byte(os.Getenv("JWT_ACCESS_SECRET")),
		RefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTL:     EnvDurationDefault("JWT_ACCESS_EXPIRES_IN", 15*time.Minute),
		RefreshTTL:    EnvDurationDefault("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),

		UploadDir:   EnvDefault("UPLOAD_DIR", "uploads"),
		ContentsDir: EnvDefault("CONTENTS_DIR", "contents"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),

		ProviderURL:   EnvDefault("GEN_API_URL", "https://api.openai.com"),
		ProviderKey:   os.Getenv("GEN_API_KEY"),
		ProviderModel: EnvDefault("GEN_API_MODEL", "gpt-4.1"),
	}

	return cfg
}

// MustValidate aborts startup when a secret the service cannot run
// without is missing.
func (c *Config) MustValidate() {
	MustNonEmptyBytes(c.AccessSecret, "JWT_ACCESS_SECRET")
	MustNonEmptyBytes(c.RefreshSecret, "JWT_REFRESH_SECRET")
	MustNonEmpty(c.DatabaseURL, "DATABASE_URL")
}

func InitDB(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Employee{},
		&models.RefreshToken{},
		&models.Todo{},
		&models.Print{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
