// Package browser resolves a launch-ready headless browser binary, installing
// one on demand into a writable cache directory when none is present.
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"textpdf/internal/domain"
	"textpdf/internal/infra/logging"
)

// State is the provisioner's position in its resolution state machine.
type State string

const (
	StateUnresolved State = "unresolved"
	StateResolved   State = "resolved"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateFailed     State = "failed"
)

// binaryFamily prefixes cache entries that belong to a Chrome/Chromium install.
const binaryFamily = "chrom"

// Options configures a Provisioner.
type Options struct {
	// Override is an operator-provided executable path; it always wins when it exists.
	Override string
	// CacheDir receives on-demand installations.
	CacheDir string
	// InstallTimeout bounds one installation; zero means unbounded.
	InstallTimeout time.Duration
	// LaunchArgs are attached to every resolved endpoint.
	LaunchArgs []string

	Locator   Locator
	Installer Installer
}

// Stats is a snapshot of the provisioner.
type Stats struct {
	State          State     `json:"state"`
	ExecutablePath string    `json:"executable_path,omitempty"`
	CacheDir       string    `json:"cache_dir"`
	Installs       int       `json:"installs"`
	LastError      string    `json:"last_error,omitempty"`
	ResolvedAt     time.Time `json:"resolved_at,omitempty"`
}

// Provisioner resolves a BrowserEndpoint once and caches it for the life of
// the process. Concurrent first callers share a single resolution; failures
// are not cached.
type Provisioner struct {
	opts  Options
	group singleflight.Group

	mu         sync.RWMutex
	endpoint   *domain.BrowserEndpoint
	state      State
	installs   int
	lastErr    error
	resolvedAt time.Time
}

// New creates a Provisioner.
func New(opts Options) *Provisioner {
	if opts.Locator == nil {
		opts.Locator = RodLocator{CacheDir: opts.CacheDir}
	}
	if opts.Installer == nil {
		opts.Installer = DownloadInstaller{}
	}
	return &Provisioner{opts: opts, state: StateUnresolved}
}

// Ensure returns a launch-ready endpoint. Waiting callers give up when ctx
// ends; the shared resolution keeps running for the others.
func (p *Provisioner) Ensure(ctx context.Context) (domain.BrowserEndpoint, error) {
	if ep, ok := p.cached(); ok {
		return ep, nil
	}

	ch := p.group.DoChan("resolve", func() (any, error) {
		if ep, ok := p.cached(); ok {
			return ep, nil
		}
		return p.resolve(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.BrowserEndpoint{}, res.Err
		}
		return res.Val.(domain.BrowserEndpoint), nil
	case <-ctx.Done():
		return domain.BrowserEndpoint{}, fmt.Errorf("%w: waiting for browser: %w", domain.ErrProvision, ctx.Err())
	}
}

// Stats returns a snapshot of the provisioner state.
func (p *Provisioner) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Stats{
		State:      p.state,
		CacheDir:   p.opts.CacheDir,
		Installs:   p.installs,
		ResolvedAt: p.resolvedAt,
	}
	if p.endpoint != nil {
		s.ExecutablePath = p.endpoint.ExecutablePath
	}
	if p.lastErr != nil {
		s.LastError = p.lastErr.Error()
	}
	return s
}

// State returns the current resolution state.
func (p *Provisioner) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Provisioner) cached() (domain.BrowserEndpoint, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.endpoint == nil {
		return domain.BrowserEndpoint{}, false
	}
	return *p.endpoint, true
}

func (p *Provisioner) resolve(ctx context.Context) (domain.BrowserEndpoint, error) {
	if ov := p.opts.Override; ov != "" {
		if fileExists(ov) {
			logging.Info("Found browser via explicit override", "path", ov)
			return p.succeed(ov, StateResolved), nil
		}
		logging.Warn("Configured browser path does not exist, continuing resolution", "path", ov)
	}

	if path, ok := probe(p.opts.Locator); ok {
		logging.Info("Found browser via auto-detect", "path", path)
		return p.succeed(path, StateResolved), nil
	}

	return p.install(ctx)
}

func (p *Provisioner) install(ctx context.Context) (domain.BrowserEndpoint, error) {
	dir := p.opts.CacheDir
	logging.Info("Browser not found, installing at runtime", "cache_dir", dir)

	p.mu.Lock()
	p.state = StateInstalling
	p.installs++
	p.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.BrowserEndpoint{}, p.fail(fmt.Errorf("%w: create cache dir %s: %v", domain.ErrProvision, dir, err))
	}
	logCacheEntries("before install", dir)

	if p.opts.InstallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.InstallTimeout)
		defer cancel()
	}

	started := time.Now()
	if err := p.opts.Installer.Install(ctx, dir); err != nil {
		logging.Error("Browser install failed", "error", err, "elapsed", time.Since(started).String())
		return domain.BrowserEndpoint{}, p.fail(fmt.Errorf("%w: install: %v", domain.ErrProvision, err))
	}
	logging.Info("Browser install finished", "elapsed", time.Since(started).String())
	logCacheEntries("after install", dir)

	if path, ok := probe(p.opts.Locator); ok {
		logging.Info("Browser found after runtime install", "path", path)
		return p.succeed(path, StateInstalled), nil
	}

	if c := familyEntries(dir); len(c) > 0 {
		logging.Warn("Browser not detected after install; cache has candidate entries", "cache_dir", dir, "entries", c)
	}
	return domain.BrowserEndpoint{}, p.fail(domain.ErrBinaryNotFoundAfterInstall)
}

func (p *Provisioner) succeed(path string, state State) domain.BrowserEndpoint {
	ep := domain.BrowserEndpoint{
		ExecutablePath: path,
		LaunchArgs:     append([]string(nil), p.opts.LaunchArgs...),
		Installed:      true,
	}

	p.mu.Lock()
	p.endpoint = &ep
	p.state = state
	p.lastErr = nil
	p.resolvedAt = time.Now()
	p.mu.Unlock()
	return ep
}

func (p *Provisioner) fail(err error) error {
	p.mu.Lock()
	p.state = StateFailed
	p.lastErr = err
	p.mu.Unlock()
	return err
}

func logCacheEntries(stage, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Warn("Could not read browser cache dir", "stage", stage, "dir", dir, "error", err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	logging.Info("Browser cache entries", "stage", stage, "dir", dir, "entries", names)
}

// familyEntries lists top-level cache entries named like a browser install.
func familyEntries(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(strings.ToLower(e.Name()), binaryFamily) {
			out = append(out, e.Name())
		}
	}
	return out
}
