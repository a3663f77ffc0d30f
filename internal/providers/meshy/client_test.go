package meshy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/auth"
)

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

// scriptedTransport serves a queue of stubs per path; the last stub repeats
// once the queue is drained. Request bodies are recorded per path in order.
type scriptedTransport struct {
	mu     sync.Mutex
	stubs  map[string][]responseStub
	calls  map[string]int
	bodies map[string][][]byte
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		stubs:  map[string][]responseStub{},
		calls:  map[string]int{},
		bodies: map[string][][]byte{},
	}
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := req.URL.Path
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		s.bodies[path] = append(s.bodies[path], body)
	}
	s.calls[path]++
	queue, ok := s.stubs[path]
	if !ok || len(queue) == 0 {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("not found")),
		}, nil
	}
	stub := queue[0]
	if len(queue) > 1 {
		s.stubs[path] = queue[1:]
	}
	header := http.Header{}
	for k, values := range stub.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: stub.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(stub.body)),
	}, nil
}

func (s *scriptedTransport) pushJSON(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[path] = append(s.stubs[path], responseStub{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	})
}

func (s *scriptedTransport) pushBinary(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[path] = append(s.stubs[path], responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/octet-stream"}},
		body:   data,
	})
}

func (s *scriptedTransport) callCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *scriptedTransport) sentBody(t *testing.T, path string, index int) []byte {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	recorded := s.bodies[path]
	if index >= len(recorded) {
		t.Fatalf("no body recorded for %s index %d (have %d)", path, index, len(recorded))
	}
	return recorded[index]
}

func newTestClient(t *testing.T, transport *scriptedTransport, opts Options) *Client {
	t.Helper()
	token, err := auth.NewStaticToken("meshy-key")
	if err != nil {
		t.Fatalf("static token: %v", err)
	}
	opts.BaseURL = "https://meshy.test"
	opts.Auth = token
	opts.HTTPClient = &http.Client{Transport: transport}
	if opts.PollInterval == 0 {
		opts.PollInterval = 2 * time.Millisecond
	}
	client, err := NewClient(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

const taskPath = "/openapi/v2/text-to-3d"

func succeededTask(id string, urls map[string]string) map[string]any {
	return map[string]any{
		"id":         id,
		"status":     "SUCCEEDED",
		"progress":   100,
		"model_urls": urls,
	}
}

func TestGenerateModelRunsPreviewThenRefine(t *testing.T) {
	transport := newScriptedTransport()
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-prev"})
	transport.pushJSON(taskPath+"/task-prev", http.StatusOK, map[string]any{"id": "task-prev", "status": "IN_PROGRESS", "progress": 40})
	transport.pushJSON(taskPath+"/task-prev", http.StatusOK, succeededTask("task-prev", nil))
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-ref"})
	transport.pushJSON(taskPath+"/task-ref", http.StatusOK, succeededTask("task-ref", map[string]string{
		"fbx": "https://assets.meshy.test/models/task-ref.fbx",
	}))
	transport.pushBinary("/models/task-ref.fbx", []byte("fbx-bytes"))
	client := newTestClient(t, transport, Options{})

	artifact, err := client.GenerateModel(context.Background(), Request{Prompt: "a wooden barrel", Mode: "lowpoly", Extension: ".fbx"})
	if err != nil {
		t.Fatalf("generate model: %v", err)
	}
	if !bytes.Equal(artifact.Data, []byte("fbx-bytes")) {
		t.Fatalf("data = %q, want fbx-bytes", artifact.Data)
	}
	if artifact.Extension != ".fbx" {
		t.Fatalf("extension = %q, want .fbx", artifact.Extension)
	}

	var preview previewRequest
	if err := json.Unmarshal(transport.sentBody(t, taskPath, 0), &preview); err != nil {
		t.Fatalf("decode preview payload: %v", err)
	}
	if preview.Mode != "preview" || preview.Prompt != "a wooden barrel" {
		t.Fatalf("preview = %+v", preview)
	}
	if preview.ArtStyle != "realistic" || preview.Topology != "triangle" || preview.TargetPolycount != 10000 {
		t.Fatalf("lowpoly defaults not applied: %+v", preview)
	}
	if preview.AIModel != "meshy-5" || preview.SymmetryMode != "auto" || !preview.ShouldRemesh {
		t.Fatalf("preview fixed fields wrong: %+v", preview)
	}

	var refine refineRequest
	if err := json.Unmarshal(transport.sentBody(t, taskPath, 1), &refine); err != nil {
		t.Fatalf("decode refine payload: %v", err)
	}
	if refine.Mode != "refine" || refine.PreviewTaskID != "task-prev" {
		t.Fatalf("refine = %+v", refine)
	}
	if !refine.EnablePBR {
		t.Fatalf("enable_pbr should be true for non-sculpture styles")
	}
}

func TestGenerateModelRealisticModeDefaults(t *testing.T) {
	transport := newScriptedTransport()
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-prev"})
	transport.pushJSON(taskPath+"/task-prev", http.StatusOK, succeededTask("task-prev", nil))
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-ref"})
	transport.pushJSON(taskPath+"/task-ref", http.StatusOK, succeededTask("task-ref", map[string]string{
		"glb": "https://assets.meshy.test/models/task-ref.glb",
	}))
	transport.pushBinary("/models/task-ref.glb", []byte("glb"))
	client := newTestClient(t, transport, Options{})

	if _, err := client.GenerateModel(context.Background(), Request{Prompt: "a chair", Mode: "realistic"}); err != nil {
		t.Fatalf("generate model: %v", err)
	}

	var preview previewRequest
	if err := json.Unmarshal(transport.sentBody(t, taskPath, 0), &preview); err != nil {
		t.Fatalf("decode preview payload: %v", err)
	}
	if preview.Topology != "quad" || preview.TargetPolycount != 30000 {
		t.Fatalf("realistic defaults not applied: %+v", preview)
	}
}

func TestGenerateModelSculptureDisablesPBR(t *testing.T) {
	transport := newScriptedTransport()
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-prev"})
	transport.pushJSON(taskPath+"/task-prev", http.StatusOK, succeededTask("task-prev", nil))
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-ref"})
	transport.pushJSON(taskPath+"/task-ref", http.StatusOK, succeededTask("task-ref", map[string]string{
		"fbx": "https://assets.meshy.test/models/task-ref.fbx",
	}))
	transport.pushBinary("/models/task-ref.fbx", []byte("fbx"))
	client := newTestClient(t, transport, Options{})

	if _, err := client.GenerateModel(context.Background(), Request{Prompt: "a bust", Mode: "lowpoly", ArtStyle: "sculpture"}); err != nil {
		t.Fatalf("generate model: %v", err)
	}

	var refine refineRequest
	if err := json.Unmarshal(transport.sentBody(t, taskPath, 1), &refine); err != nil {
		t.Fatalf("decode refine payload: %v", err)
	}
	if refine.EnablePBR {
		t.Fatalf("enable_pbr should be false for sculpture style")
	}
}

func TestGenerateModelFallsBackToAvailableFormat(t *testing.T) {
	transport := newScriptedTransport()
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-prev"})
	transport.pushJSON(taskPath+"/task-prev", http.StatusOK, succeededTask("task-prev", nil))
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-ref"})
	transport.pushJSON(taskPath+"/task-ref", http.StatusOK, succeededTask("task-ref", map[string]string{
		"glb": "https://assets.meshy.test/models/task-ref.glb",
	}))
	transport.pushBinary("/models/task-ref.glb", []byte("glb-bytes"))
	client := newTestClient(t, transport, Options{})

	artifact, err := client.GenerateModel(context.Background(), Request{Prompt: "a lantern", Extension: ".fbx"})
	if err != nil {
		t.Fatalf("generate model: %v", err)
	}
	if artifact.Extension != ".glb" {
		t.Fatalf("extension = %q, want fallback .glb", artifact.Extension)
	}
	if artifact.MIME != "model/gltf-binary" {
		t.Fatalf("mime = %q, want model/gltf-binary", artifact.MIME)
	}
}

func TestGenerateModelSurfacesTaskError(t *testing.T) {
	transport := newScriptedTransport()
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-prev"})
	transport.pushJSON(taskPath+"/task-prev", http.StatusOK, map[string]any{
		"id":         "task-prev",
		"status":     "FAILED",
		"task_error": map[string]any{"message": "prompt violates content policy"},
	})
	client := newTestClient(t, transport, Options{})

	_, err := client.GenerateModel(context.Background(), Request{Prompt: "something"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.KindOf(err) != domain.KindUpstream {
		t.Fatalf("kind = %q, want %q", domain.KindOf(err), domain.KindUpstream)
	}
	if !strings.Contains(err.Error(), "prompt violates content policy") {
		t.Fatalf("error %q should carry the task message", err)
	}
}

func TestGenerateModelTimesOutOnStuckTask(t *testing.T) {
	transport := newScriptedTransport()
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-prev"})
	transport.pushJSON(taskPath+"/task-prev", http.StatusOK, map[string]any{"id": "task-prev", "status": "PENDING"})
	client := newTestClient(t, transport, Options{
		PollInterval:  5 * time.Millisecond,
		PreviewBudget: 40 * time.Millisecond,
	})

	_, err := client.GenerateModel(context.Background(), Request{Prompt: "a tower"})
	if err == nil {
		t.Fatalf("expected timeout")
	}
	if domain.KindOf(err) != domain.KindTimeout {
		t.Fatalf("kind = %q, want %q", domain.KindOf(err), domain.KindTimeout)
	}
}

func TestCreateTaskRetriesRateLimit(t *testing.T) {
	transport := newScriptedTransport()
	transport.pushJSON(taskPath, http.StatusTooManyRequests, map[string]any{"message": "rate limited"})
	transport.pushJSON(taskPath, http.StatusOK, map[string]any{"result": "task-prev"})
	client := newTestClient(t, transport, Options{})

	id, err := client.createTask(context.Background(), previewRequest{Mode: "preview", Prompt: "x"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if id != "task-prev" {
		t.Fatalf("task id = %q, want task-prev", id)
	}
	if calls := transport.callCount(taskPath); calls != 2 {
		t.Fatalf("create calls = %d, want 2", calls)
	}
}

func TestCreateTaskDoesNotRetryBadRequest(t *testing.T) {
	transport := newScriptedTransport()
	transport.pushJSON(taskPath, http.StatusBadRequest, map[string]any{"message": "invalid art_style"})
	client := newTestClient(t, transport, Options{})

	_, err := client.createTask(context.Background(), previewRequest{Mode: "preview", Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls := transport.callCount(taskPath); calls != 1 {
		t.Fatalf("create calls = %d, want 1 (4xx is not retried)", calls)
	}
	if !strings.Contains(err.Error(), "invalid art_style") {
		t.Fatalf("error %q should carry the provider message", err)
	}
}

func TestPickModelURLPrefersRequestedFormat(t *testing.T) {
	urls := map[string]string{
		"fbx": "https://assets/f.fbx",
		"glb": "https://assets/f.glb",
	}
	u, format, err := pickModelURL(urls, ".glb")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if format != "glb" || u != "https://assets/f.glb" {
		t.Fatalf("picked %q %q, want glb", format, u)
	}

	u, format, err = pickModelURL(urls, ".usdz")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if format != "fbx" || u != "https://assets/f.fbx" {
		t.Fatalf("picked %q %q, want fbx fallback", format, u)
	}

	if _, _, err := pickModelURL(map[string]string{}, ".fbx"); err == nil {
		t.Fatalf("expected error when no urls are published")
	}
}
