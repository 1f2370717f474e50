package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"letter-log-system/internal/config"
	"letter-log-system/internal/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Revoker remembers logged-out token ids until their natural expiry.
type Revoker interface {
	Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type GormRevoker struct {
	db *gorm.DB
}

func NewGormRevoker(db *gorm.DB) *GormRevoker {
	return &GormRevoker{db: db}
}

func (r *GormRevoker) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	db := r.db.WithContext(ctx)
	// drop entries that can no longer matter
	if err := db.Where("expires_at < ?", time.Now()).Delete(&model.RevokedToken{}).Error; err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.RevokedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}).Error
}

func (r *GormRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error
	return count > 0, err
}

type RedisRevoker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb, prefix: "letterlog:revoked:"}
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, r.prefix+jti, userID, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.rdb.Get(ctx, r.prefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NewRevoker picks Redis when an address is configured, the database otherwise.
func NewRevoker(ctx context.Context, cfg config.RedisConfig, db *gorm.DB) (Revoker, func() error, error) {
	if cfg.Addr == "" {
		return NewGormRevoker(db), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisRevoker(rdb), rdb.Close, nil
}
