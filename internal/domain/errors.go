package domain

import (
	"errors"
	"fmt"
)

// Rendering pipeline errors. Callers classify with errors.Is; the HTTP layer
// collapses all of them into a single opaque failure message.
var (
	// ErrNoUsableFont signals that no font candidate exists on disk.
	ErrNoUsableFont = errors.New("no usable font")
	// ErrProvision signals that no launchable browser binary could be resolved.
	ErrProvision = errors.New("browser provisioning failed")
	// ErrBinaryNotFoundAfterInstall is terminal for the current resolution cycle.
	ErrBinaryNotFoundAfterInstall = fmt.Errorf("%w: binary not found after install", ErrProvision)
	// ErrLaunch signals that the browser process failed to start.
	ErrLaunch = errors.New("browser launch failed")
	// ErrRender signals that page load or PDF extraction failed.
	ErrRender = errors.New("PDF rendering failed")
)

// Document store errors.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidDocument  = errors.New("invalid document")
)
