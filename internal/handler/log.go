package handler

import (
	"letter-log-system/internal/middleware"
	"letter-log-system/internal/service"

	"github.com/gofiber/fiber/v2"
)

type LogHandler struct {
	audit *service.AuditService
}

func NewLogHandler(audit *service.AuditService) *LogHandler {
	return &LogHandler{audit: audit}
}

// List returns the operation log, newest first. page_size is capped at 100.
func (h *LogHandler) List(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	logs, err := h.audit.GetOperationLogs(c.UserContext(), page, pageSize)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "operation logs retrieved", logs)
}

// Mine returns the caller's own operation log.
func (h *LogHandler) Mine(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	logs, err := h.audit.GetUserOperationLogs(c.UserContext(), middleware.UserID(c), page, pageSize)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "operation logs retrieved", logs)
}
