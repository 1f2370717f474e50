package handler

import (
	"errors"
	"strconv"

	"letter-log-system/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c *fiber.Ctx, code int, message string, data interface{}) error {
	return c.Status(code).JSON(Response{Status: statusSuccess, Message: message, Data: data})
}

// ErrorHandler renders any error returned by a handler or middleware.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := apperr.Status(err)
		message := apperr.PublicMessage(err)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		}

		return c.Status(code).JSON(Response{Status: statusError, Message: message})
	}
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid id")
	}
	return uint(id), nil
}

func pageParams(c *fiber.Ctx) (int, int) {
	return c.QueryInt("page", 1), c.QueryInt("page_size", 10)
}
