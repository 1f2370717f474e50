package service

import (
	"context"
	"testing"
	"time"

	"letter-log-system/internal/database"
	"letter-log-system/internal/model"
	"letter-log-system/internal/util"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	audit   *AuditService
	auth    *AuthService
	users   *UserService
	letters *LetterService
	signer  *util.Signer
}

func newTestEnv(t *testing.T, mirror LetterMirror) *testEnv {
	t.Helper()

	db := database.OpenTest(t)
	log := zerolog.Nop()
	signer := util.NewSigner("test-secret", "letter-log", time.Hour)
	audit := NewAuditService(db, log)

	return &testEnv{
		db:      db,
		audit:   audit,
		auth:    NewAuthService(db, signer, NewGormRevoker(db), log),
		users:   NewUserService(db, audit, log),
		letters: NewLetterService(db, audit, mirror, log),
		signer:  signer,
	}
}

func (e *testEnv) seedUser(t *testing.T, username, password, role, status string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{Username: username, Password: string(hash), Role: role, Status: status}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) countRows(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }

var bg = context.Background()
