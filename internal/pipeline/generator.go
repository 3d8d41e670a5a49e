package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"textpdf/internal/domain"
	"textpdf/internal/infra/logging"
)

// FontSource resolves the font embedded into every document.
type FontSource interface {
	Resolve() (*domain.FontAsset, error)
}

// EndpointSource yields a launch-ready browser.
type EndpointSource interface {
	Ensure(ctx context.Context) (domain.BrowserEndpoint, error)
}

// DocumentComposer turns a request into self-contained HTML.
type DocumentComposer interface {
	Compose(req domain.RenderRequest, font *domain.FontAsset) (string, error)
}

// PDFRenderer prints HTML to PDF with a given browser.
type PDFRenderer interface {
	Render(ctx context.Context, html string, ep domain.BrowserEndpoint) ([]byte, error)
}

// GeneratorOptions tunes a Generator.
type GeneratorOptions struct {
	// StrictFont fails requests when no font can be resolved instead of
	// falling back to the browser's default font.
	StrictFont       bool
	ProvisionTimeout time.Duration
	RenderTimeout    time.Duration
}

// Generator runs one request through the whole pipeline.
type Generator struct {
	fonts     FontSource
	composer  DocumentComposer
	endpoints EndpointSource
	renderer  PDFRenderer
	opts      GeneratorOptions
}

// NewGenerator wires a Generator from its collaborators.
func NewGenerator(fonts FontSource, composer DocumentComposer, endpoints EndpointSource, renderer PDFRenderer, opts GeneratorOptions) *Generator {
	return &Generator{
		fonts:     fonts,
		composer:  composer,
		endpoints: endpoints,
		renderer:  renderer,
		opts:      opts,
	}
}

// Generate renders req into PDF bytes.
func (g *Generator) Generate(ctx context.Context, req domain.RenderRequest) ([]byte, error) {
	started := time.Now()

	font, err := g.font()
	if err != nil {
		return nil, err
	}

	html, err := g.composer.Compose(req, font)
	if err != nil {
		return nil, fmt.Errorf("%w: compose: %v", domain.ErrRender, err)
	}

	ep, err := g.ensure(ctx)
	if err != nil {
		return nil, err
	}

	renderCtx, cancel := withOptionalTimeout(ctx, g.opts.RenderTimeout)
	defer cancel()

	buf, err := g.renderer.Render(renderCtx, html, ep)
	if err != nil {
		return nil, err
	}

	logging.Debug("PDF rendered",
		"bytes", len(buf),
		"html_bytes", len(html),
		"elapsed", time.Since(started).String(),
	)
	return buf, nil
}

// FontDigest identifies the font that Generate currently embeds, or "" when
// rendering falls back to the browser default.
func (g *Generator) FontDigest() string {
	font, err := g.fonts.Resolve()
	if err != nil || font == nil {
		return ""
	}
	return font.Digest
}

func (g *Generator) font() (*domain.FontAsset, error) {
	font, err := g.fonts.Resolve()
	if err == nil {
		return font, nil
	}
	if g.opts.StrictFont || !errors.Is(err, domain.ErrNoUsableFont) {
		return nil, err
	}
	logging.Warn("No usable font, rendering with browser default", "error", err)
	return nil, nil
}

func (g *Generator) ensure(ctx context.Context) (domain.BrowserEndpoint, error) {
	ctx, cancel := withOptionalTimeout(ctx, g.opts.ProvisionTimeout)
	defer cancel()
	return g.endpoints.Ensure(ctx)
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
