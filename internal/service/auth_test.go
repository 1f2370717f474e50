package service

import (
	"encoding/json"
	"strings"
	"testing"

	"letter-log-system/internal/apperr"
	"letter-log-system/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.seedUser(t, "alice", "secret1", model.RoleUser, model.StatusActive)

	res, err := env.auth.Login(bg, model.LoginInput{Username: " alice ", Password: "secret1"}, ClientInfo{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)

	assert.Equal(t, alice.ID, res.ID)
	assert.Equal(t, "alice", res.Username)
	assert.NotEmpty(t, res.Token)
	require.NotNil(t, res.LastLogin)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "password")
	assert.Contains(t, string(b), `"username":"alice"`)
	assert.Contains(t, string(b), `"token":`)

	claims, err := env.signer.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.UserID)

	var stored model.User
	require.NoError(t, env.db.First(&stored, alice.ID).Error)
	assert.NotNil(t, stored.LastLogin)

	var logs []model.LoginLog
	require.NoError(t, env.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.LoginSuccess, logs[0].Status)
	assert.Equal(t, "10.0.0.1", logs[0].IP)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "secret1", model.RoleUser, model.StatusActive)
	env.seedUser(t, "bob", "secret2", model.RoleUser, model.StatusInactive)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown_user", "mallory", "secret1"},
		{"wrong_password", "alice", "wrong"},
		{"inactive_account", "bob", "secret2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Login(bg, model.LoginInput{Username: tt.username, Password: tt.password}, ClientInfo{})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindAuthentication))
			assert.Equal(t, "invalid username or password", apperr.PublicMessage(err))
		})
	}

	var failed int64
	env.db.Model(&model.LoginLog{}).Where("status = ?", model.LoginFailed).Count(&failed)
	assert.Equal(t, int64(2), failed)
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, in := range []model.LoginInput{
		{Username: "", Password: "x"},
		{Username: "alice", Password: ""},
		{Username: "   ", Password: "   "},
	} {
		_, err := env.auth.Login(bg, in, ClientInfo{})
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v", in)
	}
}

func TestAuthenticateAndLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "secret1", model.RoleUser, model.StatusActive)

	res, err := env.auth.Login(bg, model.LoginInput{Username: "alice", Password: "secret1"}, ClientInfo{})
	require.NoError(t, err)

	claims, user, err := env.auth.Authenticate(bg, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	require.NoError(t, env.auth.Logout(bg, claims))

	_, _, err = env.auth.Authenticate(bg, res.Token)
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	assert.Equal(t, int64(1), env.countRows(t, &model.RevokedToken{}))
}

func TestAuthenticateRejectsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.seedUser(t, "alice", "secret1", model.RoleUser, model.StatusActive)

	res, err := env.auth.Login(bg, model.LoginInput{Username: "alice", Password: "secret1"}, ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(alice).Update("status", model.StatusInactive).Error)

	_, _, err = env.auth.Authenticate(bg, res.Token)
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	_, _, err = env.auth.Authenticate(bg, "garbage")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.seedUser(t, "alice", "secret1", model.RoleUser, model.StatusActive)

	err := env.auth.ChangePassword(bg, alice.ID, model.ChangePasswordInput{CurrentPassword: "nope", NewPassword: "secret2"})
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	err = env.auth.ChangePassword(bg, alice.ID, model.ChangePasswordInput{CurrentPassword: "secret1", NewPassword: " "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = env.auth.ChangePassword(bg, alice.ID, model.ChangePasswordInput{CurrentPassword: "secret1", NewPassword: strings.Repeat("x", 73)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "field new_password must be at most 72 bytes", apperr.PublicMessage(err))

	require.NoError(t, env.auth.ChangePassword(bg, alice.ID, model.ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "secret2"}))

	_, err = env.auth.Login(bg, model.LoginInput{Username: "alice", Password: "secret1"}, ClientInfo{})
	assert.Error(t, err)
	_, err = env.auth.Login(bg, model.LoginInput{Username: "alice", Password: "secret2"}, ClientInfo{})
	assert.NoError(t, err)
}

func TestLoginLogsPagination(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.seedUser(t, "alice", "secret1", model.RoleUser, model.StatusActive)

	for i := 0; i < 3; i++ {
		_, err := env.auth.Login(bg, model.LoginInput{Username: "alice", Password: "secret1"}, ClientInfo{})
		require.NoError(t, err)
	}
	_, _ = env.auth.Login(bg, model.LoginInput{Username: "alice", Password: "bad"}, ClientInfo{})

	page, err := env.auth.LoginLogs(bg, alice.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, model.LoginFailed, page.Items[0].Status)

	page, err = env.auth.LoginLogs(bg, alice.ID, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)
	assert.Len(t, page.Items, 4)
}

func TestMeUnknownUser(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.auth.Me(bg, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
