package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"textpdf/internal/domain"
	"textpdf/internal/infra/logging"
)

// DocumentStore persists saved documents.
type DocumentStore interface {
	Create(ctx context.Context, data domain.DocumentData) (domain.Document, error)
	List(ctx context.Context, limit int) ([]domain.Document, error)
	Get(ctx context.Context, id string) (domain.Document, error)
	Update(ctx context.Context, id string, patch domain.DocumentPatch) (domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// DocumentHandler exposes CRUD over saved documents and renders them.
type DocumentHandler struct {
	store DocumentStore
	pdf   *PDFHandler
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(store DocumentStore, pdf *PDFHandler) *DocumentHandler {
	return &DocumentHandler{store: store, pdf: pdf}
}

// Create handles POST /v1/documents.
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var data domain.DocumentData
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	doc, err := h.store.Create(c.UserContext(), data)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// List handles GET /v1/documents.
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	docs, err := h.store.List(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// Get handles GET /v1/documents/:id.
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	doc, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(doc)
}

// Update handles PATCH /v1/documents/:id.
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	var patch domain.DocumentPatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	doc, err := h.store.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(doc)
}

// Delete handles DELETE /v1/documents/:id.
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	if err := h.store.Delete(c.UserContext(), c.Params("id")); err != nil {
		return storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Render handles POST /v1/documents/:id/pdf.
func (h *DocumentHandler) Render(c *fiber.Ctx) error {
	doc, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(c, err)
	}
	return h.pdf.Render(c, doc.RenderRequest())
}

func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Document not found")
	case errors.Is(err, domain.ErrInvalidDocument):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	logging.Error("Document store failure", "path", c.Path(), "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
}
