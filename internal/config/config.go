package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"textpdf/internal/compose"
)

// Installer kinds supported by the browser provisioner.
const (
	InstallerDownload = "download"
	InstallerCommand  = "command"
)

// DefaultConfigPath is used when CONFIG_PATH is not set.
const DefaultConfigPath = "config.yaml"

// Config is the complete runtime configuration of the service.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Limits struct {
		MaxTextBytes         int           `yaml:"max_text_bytes"`
		MaxPDFBytes          int           `yaml:"max_pdf_bytes"`
		MaxConcurrentRenders int           `yaml:"max_concurrent_renders"`
		RenderQueueTimeout   time.Duration `yaml:"render_queue_timeout"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		PDFCacheEnabled bool          `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     time.Duration `yaml:"pdf_cache_ttl"`
		RedisHost       string        `yaml:"redis_host"`
		RateLimitDB     int           `yaml:"redis_rate_db"`
		PDFCacheDB      int           `yaml:"redis_pdf_db"`
	} `yaml:"cache"`

	RateLimiter struct {
		Interval  time.Duration `yaml:"interval"`
		UserLimit int           `yaml:"user_limit"`
	} `yaml:"rate_limiter"`

	PDF struct {
		TimeoutSecs          int           `yaml:"timeout_secs"`
		ProvisionTimeoutSecs int           `yaml:"provision_timeout_secs"`
		NetworkIdle          time.Duration `yaml:"network_idle"`
	} `yaml:"pdf"`

	Browser struct {
		ExecutablePath string        `yaml:"executable_path"`
		CacheDir       string        `yaml:"cache_dir"`
		UserDataDir    string        `yaml:"user_data_dir"`
		Installer      string        `yaml:"installer"`
		InstallCommand []string      `yaml:"install_command"`
		InstallEnvVar  string        `yaml:"install_env_var"`
		InstallTimeout time.Duration `yaml:"install_timeout"`
		Revision       int           `yaml:"revision"`
		Prewarm        bool          `yaml:"prewarm"`
	} `yaml:"browser"`

	Font struct {
		BaseDir string `yaml:"base_dir"`
		Path    string `yaml:"path"`
		Family  string `yaml:"family"`
		Strict  bool   `yaml:"strict"`
	} `yaml:"font"`

	Store struct {
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"store"`
}

// Default returns a configuration where every optional setting has its documented default.
func Default() Config {
	var cfg Config
	cfg.Server.Port = ":5001"

	cfg.Limits.MaxTextBytes = 256 * 1024
	cfg.Limits.MaxPDFBytes = 20 * 1024 * 1024
	cfg.Limits.MaxConcurrentRenders = 4
	cfg.Limits.RenderQueueTimeout = 10 * time.Second

	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 28

	cfg.Cache.PDFCacheTTL = 10 * time.Minute
	cfg.Cache.RedisHost = "127.0.0.1:6379"
	cfg.Cache.PDFCacheDB = 1

	cfg.RateLimiter.Interval = time.Minute

	cfg.PDF.TimeoutSecs = 30
	cfg.PDF.ProvisionTimeoutSecs = 180
	cfg.PDF.NetworkIdle = 500 * time.Millisecond

	cfg.Browser.CacheDir = filepath.Join(os.TempDir(), "textpdf-browser")
	cfg.Browser.Installer = InstallerDownload
	cfg.Browser.InstallEnvVar = "PUPPETEER_CACHE_DIR"
	cfg.Browser.InstallTimeout = 5 * time.Minute
	cfg.Browser.Prewarm = true

	cfg.Font.Family = compose.DefaultFamily
	return cfg
}

// Load reads the configuration from CONFIG_PATH (or config.yaml).
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadFrom(path)
}

// LoadFrom reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file yields the defaults; a
// malformed file or an invalid value panics.
func LoadFrom(path string) Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: parse %s: %v", path, err))
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = ":" + v
	}
	for _, key := range []string{"BROWSER_EXECUTABLE_PATH", "PUPPETEER_EXECUTABLE_PATH", "CHROME_BIN"} {
		if v := os.Getenv(key); v != "" {
			cfg.Browser.ExecutablePath = v
			break
		}
	}
	for _, key := range []string{"BROWSER_CACHE_DIR", "PUPPETEER_CACHE_DIR"} {
		if v := os.Getenv(key); v != "" {
			cfg.Browser.CacheDir = v
			break
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.RedisHost = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Limits.MaxTextBytes <= 0:
		return errors.New("limits.max_text_bytes must be positive")
	case c.Limits.MaxPDFBytes <= 0:
		return errors.New("limits.max_pdf_bytes must be positive")
	case c.Limits.MaxConcurrentRenders < 0:
		return errors.New("limits.max_concurrent_renders must not be negative")
	case c.RateLimiter.UserLimit < 0:
		return errors.New("rate_limiter.user_limit must not be negative")
	case c.RateLimiter.UserLimit > 0 && c.RateLimiter.Interval <= 0:
		return errors.New("rate_limiter.interval must be positive when user_limit is set")
	case c.Cache.PDFCacheTTL < 0:
		return errors.New("cache.pdf_cache_ttl must not be negative")
	case c.PDF.TimeoutSecs <= 0:
		return errors.New("pdf.timeout_secs must be positive")
	case c.PDF.ProvisionTimeoutSecs < 0:
		return errors.New("pdf.provision_timeout_secs must not be negative")
	case c.PDF.NetworkIdle <= 0:
		return errors.New("pdf.network_idle must be positive")
	case c.Browser.CacheDir == "":
		return errors.New("browser.cache_dir must not be empty")
	case c.Browser.InstallTimeout < 0:
		return errors.New("browser.install_timeout must not be negative")
	case !compose.ValidFamily(c.Font.Family):
		return fmt.Errorf("font.family %q must contain only letters, digits, spaces, '_' or '-'", c.Font.Family)
	}

	switch c.Browser.Installer {
	case InstallerDownload:
	case InstallerCommand:
		if len(c.Browser.InstallCommand) == 0 {
			return errors.New("browser.install_command is required for the command installer")
		}
	default:
		return fmt.Errorf("browser.installer %q must be %q or %q", c.Browser.Installer, InstallerDownload, InstallerCommand)
	}
	return nil
}

// RenderTimeout is the deadline applied to one page load and PDF extraction.
func (c Config) RenderTimeout() time.Duration {
	return time.Duration(c.PDF.TimeoutSecs) * time.Second
}

// ProvisionTimeout bounds how long a request waits for a browser binary; zero means no bound.
func (c Config) ProvisionTimeout() time.Duration {
	return time.Duration(c.PDF.ProvisionTimeoutSecs) * time.Second
}
