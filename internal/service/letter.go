package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"letter-log-system/internal/apperr"
	"letter-log-system/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// LetterMirror receives committed letter changes. Calls happen off the
// request path and their errors are only logged.
type LetterMirror interface {
	Upsert(ctx context.Context, letter *model.Letter) error
	Remove(ctx context.Context, id uint) error
	SyncAll(ctx context.Context, letters []model.Letter) error
}

const mirrorTimeout = 30 * time.Second

type LetterService struct {
	db     *gorm.DB
	audit  *AuditService
	mirror LetterMirror
	log    zerolog.Logger
}

func NewLetterService(db *gorm.DB, audit *AuditService, mirror LetterMirror, log zerolog.Logger) *LetterService {
	return &LetterService{db: db, audit: audit, mirror: mirror, log: log}
}

type letterFields struct {
	nomorSurat string
	perihal    string
	tanggal    model.Date
	jenis      model.LetterType
	status     string
}

// validateLetter reports the first missing field in form order, then checks
// formats and enumerations.
func validateLetter(in model.LetterInput) (*letterFields, error) {
	required := []struct {
		name  string
		value string
	}{
		{"nomor_surat", in.NomorSurat},
		{"perihal", in.Perihal},
		{"tanggal", in.Tanggal},
		{"jenis", in.Jenis},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, apperr.Validation(fmt.Sprintf("field %s is required", f.name))
		}
	}

	tanggal, err := model.ParseDate(in.Tanggal)
	if err != nil {
		return nil, apperr.Validation("field tanggal must be a date in YYYY-MM-DD format")
	}

	jenis := model.LetterType(strings.TrimSpace(in.Jenis))
	if !jenis.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("field jenis must be one of: %s, %s", model.SuratMasuk, model.SuratKeluar))
	}

	status := strings.TrimSpace(in.Status)
	if status != "" && !model.ValidLetterStatus(status) {
		return nil, apperr.Validation("field status must be one of: active, archived")
	}

	return &letterFields{
		nomorSurat: strings.TrimSpace(in.NomorSurat),
		perihal:    strings.TrimSpace(in.Perihal),
		tanggal:    tanggal,
		jenis:      jenis,
		status:     status,
	}, nil
}

func (s *LetterService) List(ctx context.Context, filter model.LetterFilter) ([]model.Letter, error) {
	db := s.db.WithContext(ctx).Model(&model.Letter{})

	if jenis := strings.TrimSpace(filter.Jenis); jenis != "" {
		if !model.LetterType(jenis).Valid() {
			return nil, apperr.Validation(fmt.Sprintf("jenis must be one of: %s, %s", model.SuratMasuk, model.SuratKeluar))
		}
		db = db.Where("jenis = ?", jenis)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		db = db.Where("LOWER(nomor_surat) LIKE ? OR LOWER(perihal) LIKE ?", like, like)
	}

	letters := []model.Letter{}
	if err := db.Order("created_at DESC, id DESC").Find(&letters).Error; err != nil {
		return nil, passThrough(s.log, "list letters", err)
	}
	return letters, nil
}

func (s *LetterService) Get(ctx context.Context, id uint) (*model.Letter, error) {
	var letter model.Letter
	if err := s.db.WithContext(ctx).First(&letter, id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("letter not found")
		}
		return nil, passThrough(s.log, "get letter", err)
	}
	return &letter, nil
}

func (s *LetterService) Stats(ctx context.Context) (*model.LetterStats, error) {
	db := s.db.WithContext(ctx).Model(&model.Letter{}).Session(&gorm.Session{})
	stats := &model.LetterStats{}

	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, passThrough(s.log, "count letters", err)
	}
	if err := db.Where("jenis = ?", model.SuratMasuk).Count(&stats.SuratMasuk).Error; err != nil {
		return nil, passThrough(s.log, "count incoming letters", err)
	}
	if err := db.Where("jenis = ?", model.SuratKeluar).Count(&stats.SuratKeluar).Error; err != nil {
		return nil, passThrough(s.log, "count outgoing letters", err)
	}
	if err := db.Where("tanggal = ?", model.Today()).Count(&stats.Today).Error; err != nil {
		return nil, passThrough(s.log, "count today's letters", err)
	}
	return stats, nil
}

func (s *LetterService) Create(ctx context.Context, actorID uint, in model.LetterInput) (*model.Letter, error) {
	fields, err := validateLetter(in)
	if err != nil {
		return nil, err
	}

	status := fields.status
	if status == "" {
		status = model.LetterActive
	}

	creator := actorID
	letter := &model.Letter{
		NomorSurat: fields.nomorSurat,
		Perihal:    fields.perihal,
		Tanggal:    fields.tanggal,
		Jenis:      fields.jenis,
		Status:     status,
		CreatedBy:  &creator,
	}
	if err := s.db.WithContext(ctx).Create(letter).Error; err != nil {
		return nil, passThrough(s.log, "create letter", err)
	}

	s.audit.LogOperation(ctx, actorID, model.ActionCreate, model.TargetLetter, letter.ID, map[string]string{
		"nomor_surat": letter.NomorSurat,
		"jenis":       string(letter.Jenis),
	})
	s.mirrorAsync("upsert", letter.ID, func(ctx context.Context) error {
		return s.mirror.Upsert(ctx, letter)
	})
	return letter, nil
}

// Update replaces all four required fields; status is kept when omitted.
func (s *LetterService) Update(ctx context.Context, actorID, id uint, in model.LetterInput) (*model.Letter, error) {
	fields, err := validateLetter(in)
	if err != nil {
		return nil, err
	}

	var letter model.Letter
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&letter, id).Error; err != nil {
			if isNotFound(err) {
				return apperr.NotFound("letter not found")
			}
			return err
		}

		updates := map[string]interface{}{
			"nomor_surat": fields.nomorSurat,
			"perihal":     fields.perihal,
			"tanggal":     fields.tanggal,
			"jenis":       string(fields.jenis),
			"updated_by":  actorID,
			"updated_at":  time.Now(),
		}
		if fields.status != "" {
			updates["status"] = fields.status
		}

		if err := tx.Model(&letter).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&letter, id).Error
	})
	if err != nil {
		return nil, passThrough(s.log, "update letter", err)
	}

	s.audit.LogOperation(ctx, actorID, model.ActionUpdate, model.TargetLetter, letter.ID, map[string]string{
		"nomor_surat": letter.NomorSurat,
		"jenis":       string(letter.Jenis),
	})
	s.mirrorAsync("upsert", letter.ID, func(ctx context.Context) error {
		return s.mirror.Upsert(ctx, &letter)
	})
	return &letter, nil
}

func (s *LetterService) Delete(ctx context.Context, actorID, id uint) error {
	var letter model.Letter
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&letter, id).Error; err != nil {
			if isNotFound(err) {
				return apperr.NotFound("letter not found")
			}
			return err
		}

		result := tx.Delete(&model.Letter{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return apperr.OperationFailed("failed to delete letter", nil)
		}
		return nil
	})
	if err != nil {
		return passThrough(s.log, "delete letter", err)
	}

	s.audit.LogOperation(ctx, actorID, model.ActionDelete, model.TargetLetter, id, map[string]string{
		"nomor_surat": letter.NomorSurat,
	})
	s.mirrorAsync("remove", id, func(ctx context.Context) error {
		return s.mirror.Remove(ctx, id)
	})
	return nil
}

// MirrorAll pushes every stored letter to the mirror in one batch.
func (s *LetterService) MirrorAll(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	letters := []model.Letter{}
	if err := s.db.WithContext(ctx).Order("id").Find(&letters).Error; err != nil {
		return passThrough(s.log, "load letters for mirror", err)
	}
	return s.mirror.SyncAll(ctx, letters)
}

func (s *LetterService) mirrorAsync(op string, id uint, fn func(ctx context.Context) error) {
	if s.mirror == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.log.Warn().Err(err).Str("op", op).Uint("letter_id", id).Msg("mirror letter")
		}
	}()
}
