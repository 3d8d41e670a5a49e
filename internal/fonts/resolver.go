package fonts

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font/sfnt"

	"textpdf/internal/domain"
	"textpdf/internal/infra/logging"
)

// FontFileName is the canonical font shipped with the service.
const FontFileName = "NotoSansDevanagari-Regular.ttf"

// minFontSize flags files that are too small to be a real Devanagari font.
const minFontSize = 2000

// relativeCandidates lists font locations relative to an install directory,
// canonical layout first, then the layouts of older deployments.
var relativeCandidates = []string{
	filepath.Join("assets", "fonts", FontFileName),
	filepath.Join("public", "fonts", "Noto_Sans_Devanagari", "NotoSansDevanagari-VariableFont_wdth,wght.ttf"),
	filepath.Join("..", "public", "fonts", FontFileName),
	filepath.Join("..", "frontend", "public", "fonts", FontFileName),
	filepath.Join("..", "..", "frontend", "public", "fonts", FontFileName),
}

// InstallDirs returns the directories candidates are resolved against. An
// explicit base wins; otherwise the executable's directory, then the working directory.
func InstallDirs(base string) []string {
	if base != "" {
		return []string{base}
	}
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil && (len(dirs) == 0 || dirs[0] != wd) {
		dirs = append(dirs, wd)
	}
	return dirs
}

// Candidates builds the ordered candidate list. explicit, when set, is probed first.
func Candidates(explicit string, dirs ...string) []string {
	var out []string
	if explicit != "" {
		out = append(out, explicit)
	}
	for _, dir := range dirs {
		for _, rel := range relativeCandidates {
			out = append(out, filepath.Join(dir, rel))
		}
	}
	return out
}

// Resolver finds and caches the font asset. A successful resolution is kept
// for the life of the process; failures are not cached.
type Resolver struct {
	candidates []string

	mu     sync.Mutex
	cached *domain.FontAsset
}

// NewResolver creates a Resolver over the given candidate paths.
func NewResolver(candidates []string) *Resolver {
	return &Resolver{candidates: append([]string(nil), candidates...)}
}

// Candidates returns a copy of the probed paths in priority order.
func (r *Resolver) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

// Resolve returns the first usable font or domain.ErrNoUsableFont.
func (r *Resolver) Resolve() (*domain.FontAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		return r.cached, nil
	}

	path := firstExisting(r.candidates)
	if path == "" {
		logging.Error("Could not find font file in candidates", "candidates", r.candidates)
		return nil, fmt.Errorf("%w: probed %d candidates", domain.ErrNoUsableFont, len(r.candidates))
	}

	asset, err := Load(path)
	if err != nil {
		return nil, err
	}
	r.cached = asset
	return asset, nil
}

func firstExisting(candidates []string) string {
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && fi.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

// Load reads the font at path and builds its embeddable asset.
func Load(path string) (*domain.FontAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrNoUsableFont, path, err)
	}

	format, known := DetectFormat(data)
	sum := sha256.Sum256(data)
	asset := &domain.FontAsset{
		Path:     path,
		Size:     int64(len(data)),
		Format:   format,
		MIMEType: format.MIMEType(),
		Base64:   base64.StdEncoding.EncodeToString(data),
		Digest:   hex.EncodeToString(sum[:]),
	}

	if !known {
		asset.Warnings = append(asset.Warnings,
			fmt.Sprintf("unrecognized font header %s, assuming truetype", headerHex(data)))
	}
	if len(data) < minFontSize {
		asset.Warnings = append(asset.Warnings,
			fmt.Sprintf("font file is suspiciously small (%d bytes)", len(data)))
	}
	if format == domain.FontTrueType || format == domain.FontOpenType {
		inspect(asset, data)
	}

	for _, w := range asset.Warnings {
		logging.Warn("Font warning", "path", path, "warning", w)
	}
	logging.Info("Using font file", "path", path, "bytes", asset.Size, "format", string(format), "mime", asset.MIMEType)
	return asset, nil
}

// inspect parses sfnt containers for diagnostics only.
func inspect(asset *domain.FontAsset, data []byte) {
	f, err := sfnt.Parse(data)
	if err != nil {
		asset.Warnings = append(asset.Warnings, fmt.Sprintf("font container could not be parsed: %v", err))
		return
	}
	family, err := f.Name(&sfnt.Buffer{}, sfnt.NameIDFamily)
	if err != nil {
		family = "unknown"
	}
	logging.Debug("Parsed font container", "path", asset.Path, "family", family, "glyphs", f.NumGlyphs())
}

func headerHex(data []byte) string {
	if len(data) > 4 {
		data = data[:4]
	}
	return hex.EncodeToString(data)
}
