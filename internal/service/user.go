package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"letter-log-system/internal/apperr"
	"letter-log-system/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userColumns is the list projection; the password hash never leaves the table.
var userColumns = []string{"id", "username", "role", "status", "last_login", "created_at", "updated_at"}

// deleteUnlessLastAdmin removes a user unless it is the only admin left. It
// backs up the locked admin check in Delete; the inner derived table lets
// MySQL read the table it is deleting from.
const deleteUnlessLastAdmin = `DELETE FROM users WHERE id = ? AND (role <> ? OR (SELECT COUNT(*) FROM (SELECT id FROM users WHERE role = ?) AS admins) > 1)`

// maxPasswordBytes is the longest input bcrypt will hash.
const maxPasswordBytes = 72

func checkPasswordLength(field, password string) error {
	if len(password) > maxPasswordBytes {
		return apperr.Validation(fmt.Sprintf("field %s must be at most %d bytes", field, maxPasswordBytes))
	}
	return nil
}

// adminLockQuery selects admin ids FOR UPDATE so concurrent deletes and
// demotions of admins run one after another. SQLite drops the locking clause
// and is serialized by its single connection instead.
func adminLockQuery(tx *gorm.DB, activeOnly bool) *gorm.DB {
	q := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Model(&model.User{}).
		Where("role = ?", model.RoleAdmin)
	if activeOnly {
		q = q.Where("status = ?", model.StatusActive)
	}
	return q.Order("id")
}

func lockAdmins(tx *gorm.DB, activeOnly bool) ([]uint, error) {
	var ids []uint
	if err := adminLockQuery(tx, activeOnly).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

type UserService struct {
	db    *gorm.DB
	audit *AuditService
	log   zerolog.Logger
}

func NewUserService(db *gorm.DB, audit *AuditService, log zerolog.Logger) *UserService {
	return &UserService{db: db, audit: audit, log: log}
}

// List returns users newest first, optionally narrowed by a username keyword,
// role and status.
func (s *UserService) List(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	db := s.db.WithContext(ctx).Select(userColumns)

	if role := strings.TrimSpace(filter.Role); role != "" {
		if !model.ValidRole(role) {
			return nil, apperr.Validation("role must be one of: admin, user")
		}
		db = db.Where("role = ?", role)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		if !model.ValidUserStatus(status) {
			return nil, apperr.Validation("status must be one of: active, inactive")
		}
		db = db.Where("status = ?", status)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		db = db.Where("LOWER(username) LIKE ?", "%"+q+"%")
	}

	users := []model.User{}
	if err := db.Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, passThrough(s.log, "list users", err)
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, actorID uint, in model.CreateUserInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, apperr.Validation("field username is required")
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, apperr.Validation("field password is required")
	}
	if err := checkPasswordLength("password", in.Password); err != nil {
		return nil, err
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return nil, apperr.Validation("field role must be one of: admin, user")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = model.StatusActive
	}
	if !model.ValidUserStatus(status) {
		return nil, apperr.Validation("field status must be one of: active, inactive")
	}

	db := s.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&model.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		return nil, passThrough(s.log, "check username", err)
	}
	if existing > 0 {
		return nil, apperr.Conflict("username already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.OperationFailed("failed to hash password", err)
	}

	user := &model.User{
		Username: username,
		Password: string(hashedPassword),
		Role:     role,
		Status:   status,
	}
	if err := db.Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperr.Conflict("username already exists")
		}
		return nil, passThrough(s.log, "create user", err)
	}

	s.audit.LogOperation(ctx, actorID, model.ActionCreate, model.TargetUser, user.ID, map[string]string{
		"username": user.Username,
		"role":     user.Role,
		"status":   user.Status,
	})
	return user, nil
}

// Update applies only the fields present in the input.
func (s *UserService) Update(ctx context.Context, actorID, id uint, in model.UpdateUserInput) (*model.User, error) {
	if in.Empty() {
		return nil, apperr.Validation("no updatable fields provided")
	}
	if in.Password != nil {
		if err := checkPasswordLength("password", *in.Password); err != nil {
			return nil, err
		}
	}

	var user model.User
	changed := []string{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return apperr.NotFound("user not found")
			}
			return err
		}

		updates := map[string]interface{}{}

		if in.Username != nil {
			username := strings.TrimSpace(*in.Username)
			if username == "" {
				return apperr.Validation("field username cannot be empty")
			}
			if username != user.Username {
				var taken int64
				if err := tx.Model(&model.User{}).Where("username = ? AND id <> ?", username, id).Count(&taken).Error; err != nil {
					return err
				}
				if taken > 0 {
					return apperr.Conflict("username already exists")
				}
				updates["username"] = username
			}
		}

		if in.Password != nil && *in.Password != "" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
			if err != nil {
				return apperr.OperationFailed("failed to hash password", err)
			}
			updates["password"] = string(hashedPassword)
		}

		if in.Role != nil {
			role := strings.TrimSpace(*in.Role)
			if !model.ValidRole(role) {
				return apperr.Validation("field role must be one of: admin, user")
			}
			updates["role"] = role
		}

		if in.Status != nil {
			status := strings.TrimSpace(*in.Status)
			if !model.ValidUserStatus(status) {
				return apperr.Validation("field status must be one of: active, inactive")
			}
			updates["status"] = status
		}

		if user.IsAdmin() && user.IsActive() && losesAdmin(updates) {
			ids, err := lockAdmins(tx, true)
			if err != nil {
				return err
			}
			if !hasOtherThan(ids, id) {
				return apperr.Invariant("cannot remove the last active admin")
			}
		}

		for k := range updates {
			changed = append(changed, k)
		}
		sort.Strings(changed)
		updates["updated_at"] = time.Now()

		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			if isDuplicateKey(err) {
				return apperr.Conflict("username already exists")
			}
			return err
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, passThrough(s.log, "update user", err)
	}

	s.audit.LogOperation(ctx, actorID, model.ActionUpdate, model.TargetUser, user.ID, map[string]interface{}{
		"fields": changed,
	})
	return &user, nil
}

func hasOtherThan(ids []uint, id uint) bool {
	for _, other := range ids {
		if other != id {
			return true
		}
	}
	return false
}

func losesAdmin(updates map[string]interface{}) bool {
	if role, ok := updates["role"]; ok && role != model.RoleAdmin {
		return true
	}
	if status, ok := updates["status"]; ok && status != model.StatusActive {
		return true
	}
	return false
}

// Delete removes a user, releases the letters that reference it, and keeps
// at least one admin in the store.
func (s *UserService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return apperr.Validation("cannot delete your own account")
	}

	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return apperr.NotFound("user not found")
			}
			return err
		}

		if user.IsAdmin() {
			ids, err := lockAdmins(tx, false)
			if err != nil {
				return err
			}
			if !hasOtherThan(ids, id) {
				return apperr.Invariant("cannot delete last admin")
			}
		}

		if err := tx.Model(&model.Letter{}).Where("created_by = ?", id).UpdateColumn("created_by", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Letter{}).Where("updated_by = ?", id).UpdateColumn("updated_by", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.LoginLog{}).Error; err != nil {
			return err
		}

		result := tx.Exec(deleteUnlessLastAdmin, id, model.RoleAdmin, model.RoleAdmin)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if user.IsAdmin() {
				return apperr.Invariant("cannot delete last admin")
			}
			return apperr.OperationFailed("failed to delete user", nil)
		}
		return nil
	})
	if err != nil {
		return passThrough(s.log, "delete user", err)
	}

	s.audit.LogOperation(ctx, actorID, model.ActionDelete, model.TargetUser, id, map[string]string{
		"username": user.Username,
	})
	return nil
}
