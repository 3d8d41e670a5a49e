// Package handlers implements the HTTP endpoints of the service.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"textpdf/internal/config"
	"textpdf/internal/domain"
	"textpdf/internal/infra/chrome"
	"textpdf/internal/infra/logging"
)

// Filename is the attachment name of every generated PDF.
const Filename = "document.pdf"

// FailureMessage is the only error detail clients ever see for a failed render.
const FailureMessage = "PDF generation failed"

// Generator produces PDFs for render requests.
type Generator interface {
	Generate(ctx context.Context, req domain.RenderRequest) ([]byte, error)
	// FontDigest identifies the embedded font for cache keying.
	FontDigest() string
}

// PDFHandler serves PDF generation requests, with an optional Redis cache.
type PDFHandler struct {
	cfg   config.Config
	gen   Generator
	redis *redis.Client
}

// NewPDFHandler creates a PDFHandler. rdb may be nil.
func NewPDFHandler(cfg config.Config, gen Generator, rdb *redis.Client) *PDFHandler {
	return &PDFHandler{cfg: cfg, gen: gen, redis: rdb}
}

// HandleGenerate renders headerText, bodyText and footerText from a JSON or
// form body. Missing fields render as empty regions.
func (h *PDFHandler) HandleGenerate(c *fiber.Ctx) error {
	var req domain.RenderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	return h.Render(c, req)
}

// Render generates (or serves from cache) the PDF for req.
func (h *PDFHandler) Render(c *fiber.Ctx, req domain.RenderRequest) error {
	if req.Size() > h.cfg.Limits.MaxTextBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("Text input exceeds %d bytes", h.cfg.Limits.MaxTextBytes))
	}
	requestID := c.GetRespHeader(fiber.HeaderXRequestID)

	cacheKey := ""
	if h.cacheEnabled() {
		cacheKey = computePDFCacheKey(req, h.gen.FontDigest())
		if cached := h.getCachedPDF(c, cacheKey); cached != nil {
			logging.Info("PDF cache hit", "key", cacheKey, "request_id", requestID)
			return sendPDF(c, cached)
		}
	}

	started := time.Now()
	buf, err := h.gen.Generate(c.UserContext(), req)
	if err != nil {
		logging.Error("PDF generation failed",
			"error", err,
			"kind", errorKind(err),
			"request_id", requestID,
			"elapsed", time.Since(started).String(),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return fiber.NewError(fiber.StatusGatewayTimeout, FailureMessage)
		}
		return fiber.NewError(fiber.StatusInternalServerError, FailureMessage)
	}

	if len(buf) > h.cfg.Limits.MaxPDFBytes {
		logging.Warn("Generated PDF exceeds limit", "bytes", len(buf), "limit", h.cfg.Limits.MaxPDFBytes, "request_id", requestID)
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	}

	if cacheKey != "" {
		h.setCachedPDF(c, cacheKey, buf)
	}

	logging.Info("PDF generated",
		"bytes", len(buf),
		"request_id", requestID,
		"elapsed", time.Since(started).String(),
	)
	return sendPDF(c, buf)
}

func sendPDF(c *fiber.Ctx, buf []byte) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+Filename)
	return c.Send(buf)
}

// errorKind names the pipeline stage that failed, for logs only. A launch or
// render failure caused by the browser session going away is "interrupted".
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoUsableFont):
		return "font"
	case errors.Is(err, domain.ErrProvision):
		return "provision"
	case (errors.Is(err, domain.ErrLaunch) || errors.Is(err, domain.ErrRender)) && chrome.IsSessionInterrupted(err):
		return "interrupted"
	case errors.Is(err, domain.ErrLaunch):
		return "launch"
	case errors.Is(err, domain.ErrRender):
		return "render"
	default:
		return "unknown"
	}
}

func (h *PDFHandler) cacheEnabled() bool {
	return h.redis != nil && h.cfg.Cache.PDFCacheEnabled
}

// computePDFCacheKey hashes the three text regions and the font identity.
func computePDFCacheKey(req domain.RenderRequest, fontDigest string) string {
	h := sha256.New()
	for _, part := range []string{req.HeaderText, req.BodyText, req.FooterText, fontDigest} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "pdfcache:" + hex.EncodeToString(h.Sum(nil))
}

func (h *PDFHandler) getCachedPDF(c *fiber.Ctx, key string) []byte {
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
	defer cancel()

	cached, err := h.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Warn("Redis read failed", "error", err)
		}
		return nil
	}
	return cached
}

func (h *PDFHandler) setCachedPDF(c *fiber.Ctx, key string, data []byte) {
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
	defer cancel()

	ttl := h.cfg.Cache.PDFCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := h.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
