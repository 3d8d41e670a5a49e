package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textpdf/internal/domain"
)

// memoryStore is an in-memory DocumentStore.
type memoryStore struct {
	mu   sync.Mutex
	docs map[string]domain.Document
	fail error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]domain.Document)}
}

func (s *memoryStore) Create(_ context.Context, data domain.DocumentData) (domain.Document, error) {
	if err := data.Validate(); err != nil {
		return domain.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return domain.Document{}, s.fail
	}
	now := time.Now().UTC().Add(time.Duration(len(s.docs)) * time.Second)
	doc := domain.Document{ID: uuid.NewString(), DocumentData: data, CreatedAt: now, UpdatedAt: now}
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *memoryStore) List(context.Context, int) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]domain.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

func (s *memoryStore) Update(_ context.Context, id string, p domain.DocumentPatch) (domain.Document, error) {
	if err := p.Validate(); err != nil {
		return domain.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	if p.TranslatedText != nil {
		d.TranslatedText = *p.TranslatedText
	}
	if p.HeaderText != nil {
		d.HeaderText = *p.HeaderText
	}
	s.docs[id] = d
	return d, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(s.docs, id)
	return nil
}

func documentsApp(store DocumentStore, gen Generator) *fiber.App {
	h := NewDocumentHandler(store, NewPDFHandler(testCfg(), gen, nil))
	app := errorApp()
	app.Post("/v1/documents", h.Create)
	app.Get("/v1/documents", h.List)
	app.Get("/v1/documents/:id", h.Get)
	app.Patch("/v1/documents/:id", h.Update)
	app.Delete("/v1/documents/:id", h.Delete)
	app.Post("/v1/documents/:id/pdf", h.Render)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestDocuments_CRUDLifecycle(t *testing.T) {
	store := newMemoryStore()
	app := documentsApp(store, &fakeGenerator{})

	code, raw := doJSON(t, app, "POST", "/v1/documents",
		`{"input_text":"hello","input_language":"english","translated_text":"नमस्ते","header_text":"H","footer_text":"F"}`)
	require.Equal(t, fiber.StatusCreated, code, string(raw))
	var created domain.Document
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "नमस्ते", created.TranslatedText)

	code, raw = doJSON(t, app, "GET", "/v1/documents/"+created.ID, "")
	require.Equal(t, fiber.StatusOK, code)
	var fetched domain.Document
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	code, raw = doJSON(t, app, "PATCH", "/v1/documents/"+created.ID, `{"header_text":"New header"}`)
	require.Equal(t, fiber.StatusOK, code, string(raw))
	var updated domain.Document
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, "New header", updated.HeaderText)
	assert.Equal(t, "नमस्ते", updated.TranslatedText)

	code, raw = doJSON(t, app, "GET", "/v1/documents", "")
	require.Equal(t, fiber.StatusOK, code)
	var list struct {
		Documents []domain.Document `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list.Documents, 1)

	code, _ = doJSON(t, app, "DELETE", "/v1/documents/"+created.ID, "")
	assert.Equal(t, fiber.StatusNoContent, code)

	code, _ = doJSON(t, app, "GET", "/v1/documents/"+created.ID, "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestDocuments_ValidationErrors(t *testing.T) {
	app := documentsApp(newMemoryStore(), &fakeGenerator{})

	code, raw := doJSON(t, app, "POST", "/v1/documents", `{"input_text":"hi","input_language":"french"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, string(raw), "unsupported input_language")

	code, _ = doJSON(t, app, "POST", "/v1/documents", `{"input_text":`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = doJSON(t, app, "PATCH", "/v1/documents/"+uuid.NewString(), `{}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = doJSON(t, app, "DELETE", "/v1/documents/"+uuid.NewString(), "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestDocuments_StoreFailureIsInternal(t *testing.T) {
	store := newMemoryStore()
	store.fail = errors.New("connection refused")
	app := documentsApp(store, &fakeGenerator{})

	code, raw := doJSON(t, app, "GET", "/v1/documents", "")
	assert.Equal(t, fiber.StatusInternalServerError, code)
	assert.NotContains(t, string(raw), "connection refused")
}

func TestDocuments_RenderSavedDocument(t *testing.T) {
	store := newMemoryStore()
	doc, err := store.Create(context.Background(), domain.DocumentData{
		InputText: "hello", InputLanguage: domain.LanguageHinglish,
		TranslatedText: "नमस्ते", HeaderText: "H", FooterText: "F",
	})
	require.NoError(t, err)

	gen := &fakeGenerator{}
	app := documentsApp(store, gen)

	code, raw := doJSON(t, app, "POST", "/v1/documents/"+doc.ID+"/pdf", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, fakePDF, raw)
	require.Len(t, gen.reqs, 1)
	assert.Equal(t, domain.RenderRequest{HeaderText: "H", BodyText: "नमस्ते", FooterText: "F"}, gen.reqs[0])

	code, _ = doJSON(t, app, "POST", "/v1/documents/"+uuid.NewString()+"/pdf", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}
