package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DB     DBConfig
	Redis  RedisConfig
	Logger LoggerConfig
	Auth   AuthConfig

	FEURL string // フロントURL（CORSで使う）
}

type DBConfig struct {
	Driver      string // postgres / sqlite
	DatabaseURL string // あれば最優先

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	SQLitePath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Addrが空ならプロセス内ロックを使う
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggerConfig struct {
	Level    string // debug/info/warn/error
	Encoding string // json/console
}

type AuthConfig struct {
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string // bcrypt
	AdminPassword     string // 開発用。起動時にハッシュ化する
	SessionTTL        time.Duration
	LoginRateLimit    float64 // 1秒あたりのログイン試行数
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

// LoadDotEnv は .env があれば読む（無くてもエラーにしない）
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		DB: DBConfig{
			Driver:           strings.ToLower(getenv("DB_DRIVER", "postgres")),
			DatabaseURL:      os.Getenv("DATABASE_URL"),
			PostgresUser:     os.Getenv("POSTGRES_USER"),
			PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
			PostgresDB:       os.Getenv("POSTGRES_DB"),
			PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
			PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       getenv("SQLITE_PATH", "stockledger.db"),
		},

		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},

		Logger: LoggerConfig{
			Level:    getenv("LOG_LEVEL", "info"),
			Encoding: getenv("LOG_ENCODING", "json"),
		},

		Auth: AuthConfig{
			JWTSecret:         os.Getenv("JWT_SECRET"),
			AdminUsername:     getenv("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
			SessionTTL:        24 * time.Hour,
		},

		FEURL: os.Getenv("FE_URL"),
	}

	var err error
	if cfg.DB.PostgresPort, err = atoiDefault("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.DB.MaxOpenConns, err = atoiDefault("DB_MAX_OPEN_CONNS", 10); err != nil {
		return Config{}, err
	}
	if cfg.DB.MaxIdleConns, err = atoiDefault("DB_MAX_IDLE_CONNS", 5); err != nil {
		return Config{}, err
	}
	lifetime, err := atoiDefault("DB_CONN_MAX_LIFETIME", 300)
	if err != nil {
		return Config{}, err
	}
	cfg.DB.ConnMaxLifetime = time.Duration(lifetime) * time.Second

	if cfg.Redis.DB, err = atoiDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	cfg.Auth.LoginRateLimit = 1
	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, fmt.Errorf("LOGIN_RATE_LIMIT must be positive number")
		}
		cfg.Auth.LoginRateLimit = f
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// 必須チェック
func (c Config) validate() error {
	switch c.DB.Driver {
	case "postgres":
		if c.DB.DatabaseURL == "" {
			if c.DB.PostgresUser == "" {
				return fmt.Errorf("POSTGRES_USER is required")
			}
			if c.DB.PostgresDB == "" {
				return fmt.Errorf("POSTGRES_DB is required")
			}
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required")
	}
	if c.Auth.AdminPasswordHash == "" && c.Auth.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
	}
	if c.IsProduction() && c.Auth.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is required in production")
	}
	return nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
