package browser

import (
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/launcher"

	"textpdf/internal/infra/logging"
)

// Locator asks the automation library for its default browser location.
type Locator interface {
	LookPath() (string, bool)
}

// RodLocator finds a browser the way rod's launcher does: system installs
// first, then a rod-managed download inside CacheDir, then a puppeteer
// browsers cache rooted at CacheDir.
type RodLocator struct {
	CacheDir string
	Revision int
}

// LookPath returns a browser path that exists on disk.
func (l RodLocator) LookPath() (path string, found bool) {
	if p, ok := launcher.LookPath(); ok && fileExists(p) {
		return p, true
	}
	if l.CacheDir == "" {
		return "", false
	}
	if p := managedBinPath(l.CacheDir, l.Revision); fileExists(p) {
		return p, true
	}
	if p := puppeteerBinPath(l.CacheDir); p != "" {
		return p, true
	}
	return "", false
}

// puppeteerCacheLayouts are the binary locations `puppeteer browsers install`
// writes below its cache root, one <platform>-<version> directory per build.
var puppeteerCacheLayouts = []string{
	filepath.Join("chrome", "*", "chrome-linux64", "chrome"),
	filepath.Join("chrome-headless-shell", "*", "chrome-headless-shell-linux64", "chrome-headless-shell"),
	filepath.Join("chrome", "*", "chrome-mac-*", "Google Chrome for Testing.app", "Contents", "MacOS", "Google Chrome for Testing"),
	filepath.Join("chrome-headless-shell", "*", "chrome-headless-shell-mac-*", "chrome-headless-shell"),
	filepath.Join("chrome", "*", "chrome-win64", "chrome.exe"),
}

// puppeteerBinPath returns the most recently installed browser in a puppeteer
// cache under root, or "" when there is none. Full Chrome wins over
// headless-shell when both exist.
func puppeteerBinPath(root string) string {
	for _, layout := range puppeteerCacheLayouts {
		matches, err := filepath.Glob(filepath.Join(root, layout))
		if err != nil {
			continue
		}
		var (
			best    string
			bestMod int64
		)
		for _, m := range matches {
			fi, err := os.Stat(m)
			if err != nil || fi.IsDir() {
				continue
			}
			if mod := fi.ModTime().UnixNano(); best == "" || mod > bestMod {
				best, bestMod = m, mod
			}
		}
		if best != "" {
			return best
		}
	}
	return ""
}

// managedBinPath is where rod's downloader places the binary under root.
func managedBinPath(root string, revision int) string {
	b := launcher.NewBrowser()
	b.RootDir = root
	if revision > 0 {
		b.Revision = revision
	}
	return b.BinPath()
}

// probe calls the locator and treats a panic like a miss.
func probe(l Locator) (path string, found bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Browser auto-detect probe panicked", "panic", r)
			path, found = "", false
		}
	}()
	path, found = l.LookPath()
	if found && !fileExists(path) {
		return "", false
	}
	return path, found
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
