package service

import (
	"context"
	"strings"
	"time"

	"letter-log-system/internal/apperr"
	"letter-log-system/internal/model"
	"letter-log-system/internal/util"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const msgInvalidCredentials = "invalid username or password"

// LoginResult is the user record plus the issued token. The embedded user
// fields are flattened into the JSON object.
type LoginResult struct {
	model.User
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClientInfo is what the login log keeps about the caller.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type AuthService struct {
	db      *gorm.DB
	signer  *util.Signer
	revoker Revoker
	log     zerolog.Logger
}

func NewAuthService(db *gorm.DB, signer *util.Signer, revoker Revoker, log zerolog.Logger) *AuthService {
	return &AuthService{db: db, signer: signer, revoker: revoker, log: log}
}

func (s *AuthService) Login(ctx context.Context, in model.LoginInput, client ClientInfo) (*LoginResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, apperr.Validation("username and password are required")
	}

	db := s.db.WithContext(ctx)

	var user model.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.Authentication(msgInvalidCredentials)
		}
		return nil, passThrough(s.log, "find user for login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		s.recordLogin(ctx, user.ID, client, model.LoginFailed)
		return nil, apperr.Authentication(msgInvalidCredentials)
	}
	if !user.IsActive() {
		s.recordLogin(ctx, user.ID, client, model.LoginFailed)
		return nil, apperr.Authentication(msgInvalidCredentials)
	}

	token, expiresAt, err := s.signer.Sign(user.ID, user.Username, user.Role)
	if err != nil {
		s.log.Error().Err(err).Uint("user_id", user.ID).Msg("sign token")
		return nil, apperr.New(apperr.KindInternal, "failed to issue token")
	}

	now := time.Now()
	if err := db.Model(&user).UpdateColumns(map[string]interface{}{
		"last_login": now,
		"updated_at": now,
	}).Error; err != nil {
		s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("update last login")
	} else {
		user.LastLogin = &now
		user.UpdatedAt = now
	}

	s.recordLogin(ctx, user.ID, client, model.LoginSuccess)

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) recordLogin(ctx context.Context, userID uint, client ClientInfo, status string) {
	entry := &model.LoginLog{
		UserID:    userID,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("record login log")
	}
}

// Authenticate resolves a bearer token to its claims and the current,
// active user behind it.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*util.Claims, *model.User, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, apperr.Authentication("invalid or expired token")
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, passThrough(s.log, "check token revocation", err)
	}
	if revoked {
		return nil, nil, apperr.Authentication("token has been revoked")
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if isNotFound(err) {
			return nil, nil, apperr.Authentication("invalid or expired token")
		}
		return nil, nil, passThrough(s.log, "load token user", err)
	}
	if !user.IsActive() {
		return nil, nil, apperr.Authentication("account is inactive")
	}
	return claims, &user, nil
}

func (s *AuthService) Logout(ctx context.Context, claims *util.Claims) error {
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.UserID, expiresAt); err != nil {
		return passThrough(s.log, "revoke token", err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, passThrough(s.log, "load current user", err)
	}
	return &user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, in model.ChangePasswordInput) error {
	if strings.TrimSpace(in.NewPassword) == "" {
		return apperr.Validation("field new_password is required")
	}
	if err := checkPasswordLength("new_password", in.NewPassword); err != nil {
		return err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
		return apperr.Authentication("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.OperationFailed("failed to hash password", err)
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"password":   string(hashedPassword),
		"updated_at": time.Now(),
	}).Error; err != nil {
		return passThrough(s.log, "update password", err)
	}
	return nil
}

func (s *AuthService) LoginLogs(ctx context.Context, userID uint, page, pageSize int) (*model.Page[model.LoginLog], error) {
	page, pageSize = normalizePage(page, pageSize)
	db := s.db.WithContext(ctx).Model(&model.LoginLog{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, passThrough(s.log, "count login logs", err)
	}

	logs := []model.LoginLog{}
	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, passThrough(s.log, "list login logs", err)
	}

	return &model.Page[model.LoginLog]{Items: logs, Total: total, Page: page, PageSize: pageSize}, nil
}
