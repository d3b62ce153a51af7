package middleware

import (
	"inventory/internal/database"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const dbLocalsKey = "db"

// Database opens a session from provider for every request and stores it in
// the request locals. Handlers read it back with DB.
func Database(provider database.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(dbLocalsKey, provider.Session(c.UserContext()))
		return c.Next()
	}
}

// DB returns the request's database session, or nil when Database did not run.
func DB(c *fiber.Ctx) *gorm.DB {
	db, _ := c.Locals(dbLocalsKey).(*gorm.DB)
	return db
}
