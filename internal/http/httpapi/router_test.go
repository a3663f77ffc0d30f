package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/generate"
	"github.com/MaksimIschenko/giga-gen-project/internal/http/handlers"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/gigachat"
	"github.com/MaksimIschenko/giga-gen-project/internal/storage"

	"github.com/rs/zerolog"
)

type stubFast struct {
	artifact *domain.Artifact
	err      error
}

func (s *stubFast) Generate(context.Context, gigachat.Request) (*domain.Artifact, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.artifact
	return &cp, nil
}

func newTestServer(t *testing.T, fast generate.FastClient) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	cfg := &infra.Config{
		ImagesOutDir:    dir + "/images",
		ModelsOutDir:    dir + "/models",
		PublicBaseURL:   "http://localhost:8080/files",
		DefaultLocale:   "ru",
		AllowedOrigins:  []string{"*"},
		RateLimitPerMin: 100,
		PollInterval:    time.Second,
		PollMaxInterval: 2 * time.Second,
		PollBudget:      5 * time.Second,
	}
	logger := zerolog.New(io.Discard)

	store, err := storage.NewStore(cfg.ImagesOutDir, cfg.ModelsOutDir, cfg.PublicBaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	svc, err := generate.NewService(generate.Options{
		Config: cfg,
		Fast:   fast,
		Store:  store,
		Logger: &logger,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	app := handlers.NewApp(cfg, &logger, svc, nil)
	ts := httptest.NewServer(NewRouter(app))
	t.Cleanup(ts.Close)
	return ts
}

func TestGenerateAndServeRoundTrip(t *testing.T) {
	payload := []byte("jpeg-bytes-from-provider")
	fast := &stubFast{artifact: &domain.Artifact{Data: payload, MIME: "image/jpeg"}}
	ts := newTestServer(t, fast)

	res, err := http.Post(ts.URL+"/v1/simple/generate", "application/json",
		strings.NewReader(`{"prompt":"coffee shop logo","filename_prefix":"shop"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		body, _ := io.ReadAll(res.Body)
		t.Fatalf("unexpected status code: got %d, want 200 (body %s)", res.StatusCode, body)
	}
	var out struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	parsed, err := url.Parse(out.ImageURL)
	if err != nil {
		t.Fatalf("parse image url %q: %v", out.ImageURL, err)
	}
	name := path.Base(parsed.Path)
	if !strings.HasPrefix(name, "shop_") || !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("unexpected stored name %q", name)
	}

	get, err := http.Get(ts.URL + "/files/images/" + name)
	if err != nil {
		t.Fatalf("get stored file: %v", err)
	}
	defer get.Body.Close()
	if get.StatusCode != 200 {
		t.Fatalf("unexpected status code: got %d, want 200", get.StatusCode)
	}
	got, err := io.ReadAll(get.Body)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("served bytes do not match the stored artifact")
	}
}

func TestProviderFailureMapsToBadGateway(t *testing.T) {
	fast := &stubFast{err: domain.Upstream(503, "model overloaded")}
	ts := newTestServer(t, fast)

	res, err := http.Post(ts.URL+"/v1/simple/generate", "application/json",
		strings.NewReader(`{"prompt":"logo"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != 502 {
		t.Fatalf("unexpected status code: got %d, want 502", res.StatusCode)
	}
	var out struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Code != "provider_error" || out.Message != "model overloaded" {
		t.Fatalf("unexpected error body: %+v", out)
	}
}

func TestHealthCarriesRequestID(t *testing.T) {
	ts := newTestServer(t, &stubFast{artifact: &domain.Artifact{Data: []byte("x")}})

	res, err := http.Get(ts.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		t.Fatalf("unexpected status code: got %d, want 200", res.StatusCode)
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestFilesRefusesDirectoryListing(t *testing.T) {
	ts := newTestServer(t, &stubFast{artifact: &domain.Artifact{Data: []byte("x")}})

	res, err := http.Get(ts.URL + "/files/images/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != 404 {
		t.Fatalf("unexpected status code: got %d, want 404", res.StatusCode)
	}
}

func TestDocsServeSpecAndViewer(t *testing.T) {
	ts := newTestServer(t, &stubFast{artifact: &domain.Artifact{Data: []byte("x")}})

	res, err := http.Get(ts.URL + "/v1/openapi.json")
	if err != nil {
		t.Fatalf("get spec: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != 200 || !json.Valid(body) {
		t.Fatalf("expected valid spec document, status %d", res.StatusCode)
	}

	res, err = http.Get(ts.URL + "/docs")
	if err != nil {
		t.Fatalf("get docs: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		t.Fatalf("unexpected status code: got %d, want 200", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %q", ct)
	}
}
