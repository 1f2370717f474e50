package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"letter-log-system/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AuditService stores the operation log. A nil *AuditService records nothing.
type AuditService struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewAuditService(db *gorm.DB, log zerolog.Logger) *AuditService {
	return &AuditService{db: db, log: log}
}

// LogOperation is best-effort: a failure is logged and never reaches the caller.
func (s *AuditService) LogOperation(ctx context.Context, userID uint, action, target string, targetID uint, details interface{}) {
	if s == nil {
		return
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		s.log.Warn().Err(err).Str("action", action).Str("target", target).Msg("encode operation details")
		detailsJSON = []byte("{}")
	}

	entry := &model.OperationLog{
		UserID:    userID,
		Action:    action,
		Target:    target,
		TargetID:  strconv.FormatUint(uint64(targetID), 10),
		Details:   string(detailsJSON),
		CreatedAt: time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.Warn().Err(err).Str("action", action).Str("target", target).Uint("target_id", targetID).Msg("record operation log")
	}
}

func (s *AuditService) GetOperationLogs(ctx context.Context, page, pageSize int) (*model.Page[model.OperationLog], error) {
	return s.list(s.db.WithContext(ctx).Model(&model.OperationLog{}), page, pageSize)
}

func (s *AuditService) GetUserOperationLogs(ctx context.Context, userID uint, page, pageSize int) (*model.Page[model.OperationLog], error) {
	return s.list(s.db.WithContext(ctx).Model(&model.OperationLog{}).Where("user_id = ?", userID), page, pageSize)
}

func (s *AuditService) list(db *gorm.DB, page, pageSize int) (*model.Page[model.OperationLog], error) {
	page, pageSize = normalizePage(page, pageSize)
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, passThrough(s.log, "count operation logs", err)
	}

	logs := []model.OperationLog{}
	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, passThrough(s.log, "list operation logs", err)
	}

	return &model.Page[model.OperationLog]{Items: logs, Total: total, Page: page, PageSize: pageSize}, nil
}
