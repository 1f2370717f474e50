package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"letter-log-system/internal/database"
	"letter-log-system/internal/middleware"
	"letter-log-system/internal/model"
	"letter-log-system/internal/service"
	"letter-log-system/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	admin *model.User
}

// newTestEnv mounts every handler on a bare app. Requests act as the admin
// seeded here unless X-Test-User names another user id.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := database.OpenTest(t)
	log := zerolog.Nop()
	signer := util.NewSigner("test-secret", "letter-log", time.Hour)
	audit := service.NewAuditService(db, log)
	auth := service.NewAuthService(db, signer, service.NewGormRevoker(db), log)

	env := &testEnv{db: db}
	env.admin = env.seedUser(t, "admin", "admin123", model.RoleAdmin)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	app.Use(func(c *fiber.Ctx) error {
		user := *env.admin
		if id, err := strconv.Atoi(c.Get("X-Test-User")); err == nil {
			user = model.User{}
			if err := db.First(&user, id).Error; err != nil {
				return err
			}
		}
		middleware.SetUser(c, &util.Claims{UserID: user.ID, Username: user.Username, Role: user.Role}, &user)
		return c.Next()
	})

	authHandler := NewAuthHandler(auth)
	app.Post("/login", authHandler.Login)
	app.Get("/me", authHandler.Me)
	app.Put("/password", authHandler.ChangePassword)
	app.Get("/login-logs", authHandler.LoginLogs)

	users := NewUserHandler(service.NewUserService(db, audit, log))
	app.Get("/users", users.List)
	app.Post("/users", users.Create)
	app.Put("/users/:id", users.Update)
	app.Delete("/users/:id", users.Delete)

	letters := NewLetterHandler(service.NewLetterService(db, audit, nil, log))
	app.Get("/letters", letters.List)
	app.Get("/letters/stats", letters.Stats)
	app.Get("/letters/:id", letters.Get)
	app.Post("/letters", letters.Create)
	app.Put("/letters/:id", letters.Update)
	app.Delete("/letters/:id", letters.Delete)

	logs := NewLogHandler(audit)
	app.Get("/logs", logs.List)
	app.Get("/my-logs", logs.Mine)
	app.Get("/health", Health(db))

	env.app = app
	return env
}

func (e *testEnv) seedUser(t *testing.T, username, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{Username: username, Password: string(hash), Role: role, Status: model.StatusActive}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) (int, envelope, string) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env, string(raw)
}
