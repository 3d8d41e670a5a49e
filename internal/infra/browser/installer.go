package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/go-rod/rod/lib/launcher"
)

// Installer places a browser binary under cacheDir. Implementations block
// until the installation finishes or ctx ends.
type Installer interface {
	Install(ctx context.Context, cacheDir string) error
}

// DownloadInstaller downloads Chromium with rod's launcher into cacheDir.
type DownloadInstaller struct {
	Revision int
	// Progress receives download progress; defaults to stdout.
	Progress io.Writer
}

// Install downloads the browser unless a valid copy is already present.
func (d DownloadInstaller) Install(ctx context.Context, cacheDir string) error {
	out := d.Progress
	if out == nil {
		out = os.Stdout
	}

	b := launcher.NewBrowser()
	b.Context = ctx
	b.RootDir = cacheDir
	b.Logger = lineLogger{w: out}
	if d.Revision > 0 {
		b.Revision = d.Revision
	}

	if _, err := b.Get(); err != nil {
		return fmt.Errorf("download browser into %s: %w", cacheDir, err)
	}
	return nil
}

// lineLogger adapts an io.Writer to rod's Println-style logger.
type lineLogger struct{ w io.Writer }

func (l lineLogger) Println(v ...interface{}) {
	_, _ = fmt.Fprintln(l.w, v...)
}

// CommandInstaller runs an operator-provided install command as a child
// process. The cache directory is exported through EnvVar.
type CommandInstaller struct {
	Command []string
	EnvVar  string
	// Stdout and Stderr default to the parent's streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Install runs the command synchronously.
func (c CommandInstaller) Install(ctx context.Context, cacheDir string) error {
	if len(c.Command) == 0 {
		return errors.New("install command is empty")
	}

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = c.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Env = os.Environ()
	if c.EnvVar != "" {
		cmd.Env = append(cmd.Env, c.EnvVar+"="+cacheDir)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %q: %w", c.Command, err)
	}
	return nil
}
