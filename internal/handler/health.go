package handler

import (
	"letter-log-system/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func Health(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil {
			return apperr.Storage(err)
		}
		if err := sqlDB.PingContext(c.UserContext()); err != nil {
			return apperr.Storage(err)
		}
		return respond(c, fiber.StatusOK, "ok", nil)
	}
}
