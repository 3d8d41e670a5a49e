// Package pipeline turns a RenderRequest into PDF bytes: it resolves the
// font, composes the page, provisions a browser and prints the page.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ledongthuc/pdf"

	"textpdf/internal/domain"
)

// A4 paper in inches, as printToPDF expects.
const (
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
)

const defaultNetworkIdle = 500 * time.Millisecond

var pdfMagic = []byte("%PDF-")

// SessionRunner runs body against a live browser session.
type SessionRunner interface {
	WithSession(ctx context.Context, ep domain.BrowserEndpoint, body func(ctx context.Context) error) error
}

// Renderer prints self-contained HTML documents to A4 PDFs.
type Renderer struct {
	sessions    SessionRunner
	networkIdle time.Duration
}

// NewRenderer creates a Renderer. networkIdle is how long the page must go
// without in-flight requests before printing.
func NewRenderer(sessions SessionRunner, networkIdle time.Duration) *Renderer {
	if networkIdle <= 0 {
		networkIdle = defaultNetworkIdle
	}
	return &Renderer{sessions: sessions, networkIdle: networkIdle}
}

// Render loads html in a fresh browser session and returns the printed PDF.
func (r *Renderer) Render(ctx context.Context, html string, ep domain.BrowserEndpoint) ([]byte, error) {
	var buf []byte
	err := r.sessions.WithSession(ctx, ep, func(ctx context.Context) error {
		tracker := newNetworkTracker()
		chromedp.ListenTarget(ctx, tracker.handle)

		var fontsReady bool
		return chromedp.Run(ctx,
			network.Enable(),
			chromedp.Navigate("about:blank"),
			chromedp.ActionFunc(func(ctx context.Context) error {
				frame, err := page.GetFrameTree().Do(ctx)
				if err != nil {
					return err
				}
				return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
			}),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.ActionFunc(func(ctx context.Context) error {
				return tracker.waitIdle(ctx, r.networkIdle)
			}),
			chromedp.Evaluate(`document.fonts.ready.then(() => true)`, &fontsReady,
				func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
					return p.WithAwaitPromise(true)
				}),
			chromedp.ActionFunc(func(ctx context.Context) error {
				var err error
				buf, _, err = page.PrintToPDF().
					WithPrintBackground(true).
					WithPaperWidth(a4WidthIn).
					WithPaperHeight(a4HeightIn).
					WithMarginTop(0).
					WithMarginBottom(0).
					WithMarginLeft(0).
					WithMarginRight(0).
					WithPreferCSSPageSize(true).
					Do(ctx)
				return err
			}),
		)
	})
	if err != nil {
		if errors.Is(err, domain.ErrLaunch) || errors.Is(err, domain.ErrRender) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrRender, err)
	}

	if err := validatePDF(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	return bytes.Clone(buf), nil
}

// validatePDF checks the signature and that the document has at least one page.
func validatePDF(buf []byte) (err error) {
	if !bytes.HasPrefix(buf, pdfMagic) {
		return errors.New("output is not a PDF")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	rd, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return fmt.Errorf("malformed PDF: %w", err)
	}
	if rd.NumPage() < 1 {
		return errors.New("PDF has no pages")
	}
	return nil
}

// networkTracker counts in-flight requests of a page.
type networkTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastSeen time.Time
}

func newNetworkTracker() *networkTracker {
	return &networkTracker{inflight: make(map[network.RequestID]struct{}), lastSeen: time.Now()}
}

func (t *networkTracker) handle(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.lastSeen = time.Now()
}

func (t *networkTracker) idleFor() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inflight) > 0 {
		return 0, false
	}
	return time.Since(t.lastSeen), true
}

// waitIdle blocks until no request has been in flight for d.
func (t *networkTracker) waitIdle(ctx context.Context, d time.Duration) error {
	tick := time.NewTicker(max(d/10, time.Millisecond))
	defer tick.Stop()
	for {
		if quiet, idle := t.idleFor(); idle && quiet >= d {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
