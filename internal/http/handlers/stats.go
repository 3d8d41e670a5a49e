package handlers

import (
	"github.com/gofiber/fiber/v2"

	"textpdf/internal/config"
	"textpdf/internal/infra/browser"
	"textpdf/internal/infra/chrome"
)

// ProvisionerStats reports browser resolution state.
type ProvisionerStats interface {
	Stats() browser.Stats
}

// SessionStats reports browser session activity.
type SessionStats interface {
	Stats() chrome.Stats
}

// HandleBrowserStats exposes provisioner and session statistics.
func HandleBrowserStats(cfg config.Config, prov ProvisionerStats, sessions SessionStats) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out := fiber.Map{
			"timeout_secs":           cfg.PDF.TimeoutSecs,
			"max_concurrent_renders": cfg.Limits.MaxConcurrentRenders,
		}
		if prov != nil {
			out["provisioner"] = prov.Stats()
		}
		if sessions != nil {
			out["sessions"] = sessions.Stats()
		}
		return c.JSON(out)
	}
}
