package handler

import (
	"letter-log-system/internal/middleware"
	"letter-log-system/internal/model"
	"letter-log-system/internal/service"

	"github.com/gofiber/fiber/v2"
)

type LetterHandler struct {
	letters *service.LetterService
}

func NewLetterHandler(letters *service.LetterService) *LetterHandler {
	return &LetterHandler{letters: letters}
}

// List accepts optional jenis and q query parameters.
func (h *LetterHandler) List(c *fiber.Ctx) error {
	letters, err := h.letters.List(c.UserContext(), model.LetterFilter{
		Jenis: c.Query("jenis"),
		Query: c.Query("q"),
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "letters retrieved", letters)
}

func (h *LetterHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.letters.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "letter statistics retrieved", stats)
}

func (h *LetterHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	letter, err := h.letters.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "letter retrieved", letter)
}

func (h *LetterHandler) Create(c *fiber.Ctx) error {
	var input model.LetterInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	letter, err := h.letters.Create(c.UserContext(), middleware.UserID(c), input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "letter created", letter)
}

func (h *LetterHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var input model.LetterInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	letter, err := h.letters.Update(c.UserContext(), middleware.UserID(c), id, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "letter updated", letter)
}

func (h *LetterHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.letters.Delete(c.UserContext(), middleware.UserID(c), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "letter deleted", nil)
}
