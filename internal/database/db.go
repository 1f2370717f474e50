package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"letter-log-system/internal/config"
	"letter-log-system/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models is every table created by AutoMigrate.
var Models = []interface{}{
	&model.User{},
	&model.Letter{},
	&model.OperationLog{},
	&model.LoginLog{},
	&model.RevokedToken{},
}

func dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite", "":
		if dir := filepath.Dir(cfg.DSN); !strings.HasPrefix(cfg.DSN, "file:") && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// tableOptions returns the CREATE TABLE suffix for driver. MySQL tables use a
// binary collation so usernames compare case-sensitively, as they do on
// SQLite and Postgres.
func tableOptions(driver string) string {
	if driver == "mysql" {
		return "CHARSET=utf8mb4 COLLATE=utf8mb4_bin"
	}
	return ""
}

// Open connects to the configured database and migrates the schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.Driver == "sqlite" || cfg.Driver == "" {
		// single writer
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	migrator := db
	if opts := tableOptions(cfg.Driver); opts != "" {
		migrator = db.Set("gorm:table_options", opts)
	}
	if err := migrator.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// EnsureAdmin seeds an admin account when the store holds no admin at all.
func EnsureAdmin(db *gorm.DB, admin config.AdminConfig, log zerolog.Logger) error {
	var adminCount int64
	if err := db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&adminCount).Error; err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if adminCount > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user := &model.User{
		Username: admin.Username,
		Password: string(hashedPassword),
		Role:     model.RoleAdmin,
		Status:   model.StatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	log.Info().Str("username", user.Username).Msg("default admin account created")
	return nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
