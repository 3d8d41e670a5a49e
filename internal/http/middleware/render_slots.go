package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"textpdf/internal/infra/logging"
)

// RenderSlots bounds the number of renders in flight. A request that cannot
// get a slot within wait is rejected with 503. max <= 0 disables the bound.
func RenderSlots(max int, wait time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	slots := make(chan struct{}, max)

	return func(c *fiber.Ctx) error {
		if !acquire(slots, wait) {
			logging.Warn("No render slot available", "path", c.Path(), "max", max, "wait", wait.String())
			return JSONError(c, fiber.StatusServiceUnavailable, "Server busy, try again later")
		}
		defer func() { <-slots }()
		return c.Next()
	}
}

func acquire(slots chan struct{}, wait time.Duration) bool {
	select {
	case slots <- struct{}{}:
		return true
	default:
	}
	if wait <= 0 {
		return false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case slots <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}
