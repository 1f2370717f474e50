package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Redis    RedisConfig
	Sheets   SheetsConfig
	Log      LogConfig
}

type ServerConfig struct {
	Address        string
	AllowedOrigins string
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// AdminConfig is the account seeded when the store has no admin at all.
type AdminConfig struct {
	Username string
	Password string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SheetsConfig struct {
	Enabled         bool
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
}

type LogConfig struct {
	Level  string
	Format string
}

const envPrefix = "LETTERLOG"

// DefaultJWTSecret is only fit for local development.
const DefaultJWTSecret = "dev-secret"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/letterlog.db")
	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.issuer", "letter-log")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "admin123")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sheets.enabled", false)
	v.SetDefault("sheets.credentials_file", "credentials.json")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.sheet_name", "Surat")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads defaults, then the optional YAML file at path, then LETTERLOG_*
// environment variables (a .env file in the working directory is honoured).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	ttl, err := time.ParseDuration(v.GetString("jwt.ttl"))
	if err != nil {
		return nil, fmt.Errorf("parse jwt.ttl: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Address:        v.GetString("server.address"),
			AllowedOrigins: v.GetString("server.allowed_origins"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			DSN:    v.GetString("database.dsn"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
			TTL:    ttl,
		},
		Admin: AdminConfig{
			Username: v.GetString("admin.username"),
			Password: v.GetString("admin.password"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Sheets: SheetsConfig{
			Enabled:         v.GetBool("sheets.enabled"),
			CredentialsFile: v.GetString("sheets.credentials_file"),
			SpreadsheetID:   v.GetString("sheets.spreadsheet_id"),
			SheetName:       v.GetString("sheets.sheet_name"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsesDefaultSecret reports whether tokens are signed with the development
// secret, which anyone reading the source can forge.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWT.Secret == DefaultJWTSecret
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is empty")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is empty")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("jwt.ttl must be positive")
	}
	if c.Sheets.Enabled && c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required when sheets are enabled")
	}
	return nil
}
