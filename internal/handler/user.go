package handler

import (
	"letter-log-system/internal/middleware"
	"letter-log-system/internal/model"
	"letter-log-system/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UserHandler serves the admin-only user management routes.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext(), model.UserFilter{
		Query:  c.Query("q"),
		Role:   c.Query("role"),
		Status: c.Query("status"),
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "users retrieved", users)
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var input model.CreateUserInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	user, err := h.users.Create(c.UserContext(), middleware.UserID(c), input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "user created", user)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var input model.UpdateUserInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	user, err := h.users.Update(c.UserContext(), middleware.UserID(c), id, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "user updated", user)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.UserContext(), middleware.UserID(c), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "user deleted", nil)
}
