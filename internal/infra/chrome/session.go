// Package chrome launches short-lived headless browser sessions and
// guarantees their teardown.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"

	"textpdf/internal/config"
	"textpdf/internal/domain"
	"textpdf/internal/infra/logging"
)

// DefaultLaunchArgs are the minimal-privilege flags required to run inside
// unprivileged containers. They disable the browser sandbox; the service
// must only ever load the self-contained documents it composes itself.
var DefaultLaunchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--no-zygote",
	"--single-process",
}

// Stats describes session activity since process start.
type Stats struct {
	Active         int64     `json:"active"`
	Launched       int64     `json:"launched"`
	LaunchFailures int64     `json:"launch_failures"`
	ProfileBase    string    `json:"profile_base"`
	LastLaunch     time.Time `json:"last_launch,omitempty"`
}

// SessionManager runs one browser process per session.
type SessionManager struct {
	cfg config.Config

	active     atomic.Int64
	launched   atomic.Int64
	failures   atomic.Int64
	lastLaunch atomic.Int64
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(cfg config.Config) *SessionManager {
	return &SessionManager{cfg: cfg}
}

// WithSession launches a browser for ep, runs body with a browser-bound
// context and tears the browser down on every exit path, including panics
// in body and expiry of ctx.
func (m *SessionManager) WithSession(ctx context.Context, ep domain.BrowserEndpoint, body func(ctx context.Context) error) (err error) {
	if !ep.Installed || ep.ExecutablePath == "" {
		return fmt.Errorf("%w: browser endpoint is not installed", domain.ErrLaunch)
	}

	profileDir, err := createProfileDir(m.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLaunch, err)
	}

	opts := allocatorOptions(ep, profileDir)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	m.active.Add(1)
	pid := 0
	defer func() {
		browserCancel()
		allocCancel()
		if pid > 0 {
			killProcessGroup(pid)
		}
		if rmErr := os.RemoveAll(profileDir); rmErr != nil {
			logging.Warn("Failed to remove browser profile dir", "dir", profileDir, "error", rmErr)
		}
		m.active.Add(-1)
	}()

	// Run without actions starts the browser and attaches the first tab.
	if err := chromedp.Run(browserCtx); err != nil {
		m.failures.Add(1)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrLaunch, ctxErr)
		}
		return fmt.Errorf("%w: %v", domain.ErrLaunch, err)
	}
	m.launched.Add(1)
	m.lastLaunch.Store(time.Now().UnixNano())

	if c := chromedp.FromContext(browserCtx); c != nil && c.Browser != nil {
		if p := c.Browser.Process(); p != nil {
			pid = p.Pid
		}
	}
	logging.Debug("Browser session started", "pid", pid, "profile_dir", profileDir)

	return body(browserCtx)
}

// Stats returns a snapshot of session counters.
func (m *SessionManager) Stats() Stats {
	s := Stats{
		Active:         m.active.Load(),
		Launched:       m.launched.Load(),
		LaunchFailures: m.failures.Load(),
		ProfileBase:    profileBase(m.cfg),
	}
	if ns := m.lastLaunch.Load(); ns > 0 {
		s.LastLaunch = time.Unix(0, ns)
	}
	return s
}

func allocatorOptions(ep domain.BrowserEndpoint, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(ep.ExecutablePath),
		chromedp.UserDataDir(profileDir),
		chromedp.ModifyCmdFunc(func(cmd *exec.Cmd) { isolate(cmd) }),
	)
	for _, arg := range ep.LaunchArgs {
		name, value, ok := parseFlag(arg)
		if !ok {
			continue
		}
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// parseFlag turns "--name" or "--name=value" into a chromedp flag.
func parseFlag(arg string) (string, any, bool) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if arg == "" {
		return "", nil, false
	}
	if name, value, found := strings.Cut(arg, "="); found {
		return name, value, name != ""
	}
	return arg, true, true
}

func profileBase(cfg config.Config) string {
	if cfg.Browser.UserDataDir != "" {
		return cfg.Browser.UserDataDir
	}
	return os.TempDir()
}

func createProfileDir(cfg config.Config) (string, error) {
	base := profileBase(cfg)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create profile base %s: %w", base, err)
	}
	dir, err := os.MkdirTemp(base, "textpdf-profile-*")
	if err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}
	return dir, nil
}

// IsSessionInterrupted reports whether err means the browser session went
// away underneath the caller.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"target closed", "websocket", "connection reset", "browser closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
