package pipeline

import (
	"textpdf/internal/compose"
	"textpdf/internal/config"
	"textpdf/internal/fonts"
	"textpdf/internal/infra/browser"
	"textpdf/internal/infra/chrome"
)

// Stack holds the long-lived pipeline components shared by all requests.
type Stack struct {
	Generator   *Generator
	Provisioner *browser.Provisioner
	Sessions    *chrome.SessionManager
	Fonts       *fonts.Resolver
}

// NewStack wires the production pipeline from cfg.
func NewStack(cfg config.Config) (*Stack, error) {
	composer, err := compose.New(cfg.Font.Family)
	if err != nil {
		return nil, err
	}

	resolver := fonts.NewResolver(fonts.Candidates(cfg.Font.Path, fonts.InstallDirs(cfg.Font.BaseDir)...))
	prov := browser.New(browser.Options{
		Override:       cfg.Browser.ExecutablePath,
		CacheDir:       cfg.Browser.CacheDir,
		InstallTimeout: cfg.Browser.InstallTimeout,
		LaunchArgs:     chrome.DefaultLaunchArgs,
		Locator:        browser.RodLocator{CacheDir: cfg.Browser.CacheDir, Revision: cfg.Browser.Revision},
		Installer:      newInstaller(cfg),
	})
	sessions := chrome.NewSessionManager(cfg)

	gen := NewGenerator(resolver, composer, prov, NewRenderer(sessions, cfg.PDF.NetworkIdle), GeneratorOptions{
		StrictFont:       cfg.Font.Strict,
		ProvisionTimeout: cfg.ProvisionTimeout(),
		RenderTimeout:    cfg.RenderTimeout(),
	})

	return &Stack{Generator: gen, Provisioner: prov, Sessions: sessions, Fonts: resolver}, nil
}

func newInstaller(cfg config.Config) browser.Installer {
	if cfg.Browser.Installer == config.InstallerCommand {
		return browser.CommandInstaller{Command: cfg.Browser.InstallCommand, EnvVar: cfg.Browser.InstallEnvVar}
	}
	return browser.DownloadInstaller{Revision: cfg.Browser.Revision}
}
