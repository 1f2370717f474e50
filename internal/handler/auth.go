package handler

import (
	"letter-log-system/internal/middleware"
	"letter-log-system/internal/model"
	"letter-log-system/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input model.LoginInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), input, service.ClientInfo{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "login successful", result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), middleware.CurrentClaims(c)); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "logout successful", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.auth.Me(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "user retrieved", user)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input model.ChangePasswordInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.UserContext(), middleware.UserID(c), input); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "password updated", nil)
}

func (h *AuthHandler) LoginLogs(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	logs, err := h.auth.LoginLogs(c.UserContext(), middleware.UserID(c), page, pageSize)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "login logs retrieved", logs)
}
