package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textpdf/internal/compose"
	"textpdf/internal/config"
	"textpdf/internal/domain"
	"textpdf/internal/http/handlers"
	"textpdf/internal/infra/browser"
	"textpdf/internal/pipeline"
)

func minimalConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Browser.CacheDir = t.TempDir()
	cfg.Browser.UserDataDir = t.TempDir()
	cfg.Cache.PDFCacheEnabled = false
	cfg.Cache.RedisHost = ""
	return cfg
}

type emptyLocator struct{}

func (emptyLocator) LookPath() (string, bool) { return "", false }

type failingInstaller struct{}

func (failingInstaller) Install(context.Context, string) error {
	return context.DeadlineExceeded
}

func TestNew_RoutesAndJSON404(t *testing.T) {
	app := New(Deps{Config: minimalConfig(t)})

	respStats, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/browser/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, respStats.StatusCode)

	resp404, err := app.Test(httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp404.StatusCode)
	assert.Contains(t, resp404.Header.Get("Content-Type"), "application/json")

	raw, _ := io.ReadAll(resp404.Body)
	assert.JSONEq(t, `{"error":{"code":404,"message":"Not Found"}}`, string(raw))
}

func TestNew_HealthAndReadiness(t *testing.T) {
	app := New(Deps{Config: minimalConfig(t)})

	for _, path := range []string{"/ops/health", "/ops/ready"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestNew_DocumentRoutesOnlyWithStore(t *testing.T) {
	app := New(Deps{Config: minimalConfig(t)})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGeneratePDF_ProvisioningFailureIsOpaque(t *testing.T) {
	cfg := minimalConfig(t)
	prov := browser.New(browser.Options{
		CacheDir:  cfg.Browser.CacheDir,
		Locator:   emptyLocator{},
		Installer: failingInstaller{},
	})
	gen := pipeline.NewGenerator(
		staticFonts{},
		mustComposer(t),
		prov,
		nil,
		pipeline.GeneratorOptions{},
	)
	stack := &pipeline.Stack{Generator: gen, Provisioner: prov}

	app := New(Deps{Config: cfg, Stack: stack})

	for _, path := range []string{"/generate-pdf", "/v1/pdf"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"headerText":"a","bodyText":"b","footerText":"c"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode, path)

		var body struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "PDF generation failed", body.Error.Message)
		assert.NotContains(t, string(raw), "install")
	}
	assert.Equal(t, 2, prov.Stats().Installs, "failed provisioning must be retried on the next request")
}

type pingStore struct {
	handlers.DocumentStore
	err error
}

func (s pingStore) Ping(context.Context) error { return s.err }

func TestNew_ReadinessFollowsDocumentStore(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		want int
	}{
		"reachable":   {want: http.StatusOK},
		"unreachable": {err: errors.New("connection refused"), want: http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			app := New(Deps{Config: minimalConfig(t), Documents: pingStore{err: tc.err}})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ops/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)

			live, err := app.Test(httptest.NewRequest(http.MethodGet, "/ops/health", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, live.StatusCode)
		})
	}
}

type staticFonts struct{}

func (staticFonts) Resolve() (*domain.FontAsset, error) {
	return nil, domain.ErrNoUsableFont
}

func mustComposer(t *testing.T) *compose.Composer {
	t.Helper()
	c, err := compose.New("")
	require.NoError(t, err)
	return c
}
