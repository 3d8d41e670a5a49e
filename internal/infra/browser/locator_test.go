package browser

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_RejectsPathsThatDoNotExist(t *testing.T) {
	path, ok := probe(&fakeLocator{path: "/nonexistent/chrome"})
	assert.False(t, ok)
	assert.Empty(t, path)
}

func TestProbe_RecoversFromPanic(t *testing.T) {
	path, ok := probe(panicLocator{})
	assert.False(t, ok)
	assert.Empty(t, path)
}

func TestManagedBinPath_UnderCacheDir(t *testing.T) {
	root := t.TempDir()
	p := managedBinPath(root, 1321438)
	assert.Contains(t, p, filepath.Join(root, "chromium-1321438"))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "bin")
	require.NoError(t, os.WriteFile(f, nil, 0o755))

	assert.True(t, fileExists(f))
	assert.False(t, fileExists(dir))
	assert.False(t, fileExists(""))
}

func writeBinary(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestPuppeteerBinPath(t *testing.T) {
	t.Run("empty cache", func(t *testing.T) {
		assert.Empty(t, puppeteerBinPath(t.TempDir()))
	})

	t.Run("newest chrome build wins", func(t *testing.T) {
		root := t.TempDir()
		now := time.Now()
		older := filepath.Join(root, "chrome", "linux-130.0.6723.58", "chrome-linux64", "chrome")
		newer := filepath.Join(root, "chrome", "linux-131.0.6778.85", "chrome-linux64", "chrome")
		writeBinary(t, newer, now)
		writeBinary(t, older, now.Add(-time.Hour))

		assert.Equal(t, newer, puppeteerBinPath(root))
	})

	t.Run("headless shell", func(t *testing.T) {
		root := t.TempDir()
		bin := filepath.Join(root, "chrome-headless-shell", "linux-131.0.6778.85", "chrome-headless-shell-linux64", "chrome-headless-shell")
		writeBinary(t, bin, time.Now())

		assert.Equal(t, bin, puppeteerBinPath(root))
	})

	t.Run("full chrome preferred over headless shell", func(t *testing.T) {
		root := t.TempDir()
		full := filepath.Join(root, "chrome", "linux-131.0.6778.85", "chrome-linux64", "chrome")
		shell := filepath.Join(root, "chrome-headless-shell", "linux-131.0.6778.85", "chrome-headless-shell-linux64", "chrome-headless-shell")
		writeBinary(t, shell, time.Now())
		writeBinary(t, full, time.Now().Add(-time.Hour))

		assert.Equal(t, full, puppeteerBinPath(root))
	})

	t.Run("directory named like the binary is ignored", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "chrome", "linux-1", "chrome-linux64", "chrome"), 0o755))
		assert.Empty(t, puppeteerBinPath(root))
	})
}

func TestRodLocator_FindsPuppeteerCache(t *testing.T) {
	if _, ok := launcher.LookPath(); ok {
		t.Skip("a system browser shadows the cache lookup")
	}
	root := t.TempDir()
	bin := filepath.Join(root, "chrome", "linux-131.0.6778.85", "chrome-linux64", "chrome")
	writeBinary(t, bin, time.Now())

	path, ok := RodLocator{CacheDir: root}.LookPath()
	require.True(t, ok)
	assert.Equal(t, bin, path)
}

func TestProvisioner_CommandInstallIntoPuppeteerCache(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires /bin/sh and the linux64 cache layout")
	}
	if _, ok := launcher.LookPath(); ok {
		t.Skip("a system browser short-circuits installation")
	}
	cache := t.TempDir()
	script := `dir="$PUPPETEER_CACHE_DIR/chrome/linux-131.0.6778.85/chrome-linux64" && mkdir -p "$dir" && printf '#!/bin/sh\n' > "$dir/chrome" && chmod +x "$dir/chrome"`

	p := New(Options{
		CacheDir:       cache,
		InstallTimeout: 30 * time.Second,
		Installer: CommandInstaller{
			Command: []string{"/bin/sh", "-c", script},
			EnvVar:  "PUPPETEER_CACHE_DIR",
		},
	})

	ep, err := p.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "chrome", "linux-131.0.6778.85", "chrome-linux64", "chrome"), ep.ExecutablePath)
	assert.True(t, ep.Installed)
	assert.Equal(t, StateInstalled, p.State())
	assert.EqualValues(t, 1, p.Stats().Installs)
}
