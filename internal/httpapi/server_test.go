package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aicore/internal/auth"
	"aicore/internal/cache"
	"aicore/internal/manager"
	"aicore/pkg/types"
)

type mockService struct {
	models       []types.Model
	defaultModel string
	loaded       map[string]bool
	status       types.StatusResponse
	ready        bool
	genErr       error
	genCalls     int
	loadErr      error
	unloadErr    error
}

func (m *mockService) ListModels() []types.Model { return append([]types.Model(nil), m.models...) }
func (m *mockService) DefaultModel() string      { return m.defaultModel }
func (m *mockService) IsLoaded(name string) bool { return m.loaded[name] }
func (m *mockService) LoadedCount() int          { return len(m.loaded) }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool               { return m.ready }

func (m *mockService) Generate(ctx context.Context, req types.GenerateRequest) (manager.GenerateResult, error) {
	m.genCalls++
	if m.genErr != nil {
		return manager.GenerateResult{}, m.genErr
	}
	name := req.Model
	if name == "" {
		name = m.defaultModel
	}
	return manager.GenerateResult{
		Content:   "echo: " + req.Prompt,
		Usage:     manager.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
		ModelName: name,
	}, nil
}

func (m *mockService) Load(ctx context.Context, name string, force bool) (time.Duration, error) {
	if m.loadErr != nil {
		return 0, m.loadErr
	}
	if m.loaded == nil {
		m.loaded = map[string]bool{}
	}
	m.loaded[name] = true
	return 25 * time.Millisecond, nil
}

func (m *mockService) Unload(name string) error {
	if m.unloadErr != nil {
		return m.unloadErr
	}
	delete(m.loaded, name)
	return nil
}

func newTestMux(svc Service) http.Handler {
	return NewMux(svc, Options{Version: "test"})
}

func postJSON(t *testing.T, h http.Handler, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h := newTestMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyzNotReady(t *testing.T) {
	h := newTestMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	svc := &mockService{
		ready:        true,
		defaultModel: "m1",
		models:       []types.Model{{Name: "m1"}, {Name: "m2"}},
		loaded:       map[string]bool{"m1": true},
	}
	h := newTestMux(svc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "healthy" || body.Service != "aicore" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Models.Total != 2 || body.Models.Loaded != 1 || body.Models.Default != "m1" {
		t.Fatalf("unexpected models summary: %+v", body.Models)
	}
	if body.Cache.Enabled {
		t.Fatalf("cache should report disabled with noop cache")
	}
}

func TestHealthDegradedWhenNotReady(t *testing.T) {
	h := newTestMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	var body types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", body.Status)
	}
}

func TestModelsList(t *testing.T) {
	svc := &mockService{
		ready:        true,
		defaultModel: "m1",
		models:       []types.Model{{Name: "m1"}, {Name: "m2"}},
		loaded:       map[string]bool{"m2": true},
	}
	h := newTestMux(svc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ModelListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.TotalModels != 2 || body.LoadedModels != 1 || body.DefaultModel != "m1" {
		t.Fatalf("unexpected body: %+v", body)
	}
	for _, m := range body.Models {
		if m.Name == "m2" && !m.Loaded {
			t.Fatalf("expected m2 loaded")
		}
	}
}

func TestGetModelByName(t *testing.T) {
	svc := &mockService{ready: true, models: []types.Model{{Name: "m1"}}}
	h := newTestMux(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/models/m1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/models/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if e.Code != http.StatusNotFound {
		t.Fatalf("unexpected error payload: %+v", e)
	}
}

func TestGenerate(t *testing.T) {
	svc := &mockService{ready: true, defaultModel: "m1"}
	h := newTestMux(svc)
	w := postJSON(t, h, "/api/v1/generate", types.GenerateRequest{Prompt: "hi"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Response != "echo: hi" || body.Model != "m1" || body.Cached {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.TokensUsed != 3 {
		t.Fatalf("expected tokens_used=3, got %d", body.TokensUsed)
	}
}

func TestGenerateValidation(t *testing.T) {
	h := newTestMux(&mockService{ready: true})

	// missing prompt
	w := postJSON(t, h, "/api/v1/generate", types.GenerateRequest{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}

	// wrong content type
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader("prompt=hi"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", rec.Code)
	}

	// invalid JSON
	req = httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{manager.ErrModelNotFound("x"), http.StatusNotFound},
		{manager.ErrDependencyUnavailable("down"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		svc := &mockService{ready: true, genErr: tc.err}
		h := newTestMux(svc)
		w := postJSON(t, h, "/api/v1/generate", types.GenerateRequest{Prompt: "hi"}, nil)
		if w.Code != tc.want {
			t.Fatalf("err=%v: status=%d want=%d", tc.err, w.Code, tc.want)
		}
	}
}

func TestGenerateCached(t *testing.T) {
	svc := &mockService{ready: true, defaultModel: "m1"}
	h := NewMux(svc, Options{Cache: cache.NewMemory(), CacheTTL: time.Minute})

	req := types.GenerateRequest{Prompt: "hi"}
	w := postJSON(t, h, "/api/v1/generate", req, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var first types.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("json: %v", err)
	}
	if first.Cached {
		t.Fatalf("first response must not be cached")
	}

	w = postJSON(t, h, "/api/v1/generate", req, nil)
	var second types.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !second.Cached {
		t.Fatalf("second response should be served from cache")
	}
	if svc.genCalls != 1 {
		t.Fatalf("expected 1 generate call, got %d", svc.genCalls)
	}
	if second.Response != first.Response {
		t.Fatalf("cached response mismatch: %q vs %q", second.Response, first.Response)
	}
}

func TestChatSingleMessage(t *testing.T) {
	svc := &mockService{ready: true, defaultModel: "m1"}
	h := newTestMux(svc)
	w := postJSON(t, h, "/api/v1/chat", types.ChatRequest{Message: "hello"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(body.Response, "User: hello") {
		t.Fatalf("prompt flattening missing, got %q", body.Response)
	}
	if len(body.Messages) != 2 || body.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected history: %+v", body.Messages)
	}
}

func TestChatHistoryFlattening(t *testing.T) {
	svc := &mockService{ready: true, defaultModel: "m1"}
	h := newTestMux(svc)
	reqBody := types.ChatRequest{Messages: []types.ChatMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "bye"},
	}}
	w := postJSON(t, h, "/api/v1/chat", reqBody, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	want := "System: be terse\nUser: hi\nAssistant: hello\nUser: bye\nAssistant: "
	if body.Response != "echo: "+want {
		t.Fatalf("unexpected flattened prompt: %q", body.Response)
	}
	if len(body.Messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(body.Messages))
	}
}

func TestChatRequiresMessage(t *testing.T) {
	h := newTestMux(&mockService{ready: true})
	w := postJSON(t, h, "/api/v1/chat", types.ChatRequest{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestLoadUnload(t *testing.T) {
	svc := &mockService{ready: true, defaultModel: "m1"}
	h := newTestMux(svc)

	w := postJSON(t, h, "/api/v1/models/load", types.LoadRequest{Model: "m1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load status=%d", w.Code)
	}
	var lr types.LoadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &lr); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !lr.Success || lr.Model != "m1" || lr.LoadTime <= 0 {
		t.Fatalf("unexpected load response: %+v", lr)
	}

	w = postJSON(t, h, "/api/v1/models/unload", types.UnloadRequest{Model: "m1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unload status=%d", w.Code)
	}
}

func TestUnloadNotFound(t *testing.T) {
	svc := &mockService{ready: true, unloadErr: manager.ErrModelNotFound("x")}
	h := newTestMux(svc)
	w := postJSON(t, h, "/api/v1/models/unload", types.UnloadRequest{Model: "x"}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	svc := &mockService{ready: true, status: types.StatusResponse{BudgetMB: 10, State: "ready"}}
	h := newTestMux(svc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.BudgetMB != 10 || body.State != "ready" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAuthRequired(t *testing.T) {
	svc := &mockService{ready: true, defaultModel: "m1"}
	a := auth.New(auth.Config{APIKeys: []string{"secret"}, JWTSecret: "jwt-secret"})
	h := NewMux(svc, Options{Auth: a})

	// no key
	w := postJSON(t, h, "/api/v1/generate", types.GenerateRequest{Prompt: "hi"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}

	// bad key
	w = postJSON(t, h, "/api/v1/generate", types.GenerateRequest{Prompt: "hi"}, map[string]string{"X-API-Key": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}

	// good key
	w = postJSON(t, h, "/api/v1/generate", types.GenerateRequest{Prompt: "hi"}, map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	// health stays open
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}
}

func TestAuthTokenExchange(t *testing.T) {
	svc := &mockService{ready: true, defaultModel: "m1"}
	a := auth.New(auth.Config{APIKeys: []string{"secret"}, JWTSecret: "jwt-secret"})
	h := NewMux(svc, Options{Auth: a})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var tok types.TokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil {
		t.Fatalf("json: %v", err)
	}
	if tok.Token == "" || tok.ExpiresIn <= 0 {
		t.Fatalf("unexpected token response: %+v", tok)
	}

	// use the bearer token on a protected route
	w2 := postJSON(t, h, "/api/v1/generate", types.GenerateRequest{Prompt: "hi"},
		map[string]string{"Authorization": "Bearer " + tok.Token})
	if w2.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w2.Code, w2.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q", got)
	}
}

func TestFlattenChatRoles(t *testing.T) {
	got := flattenChat([]types.ChatMessage{{Role: "weird", Content: "x"}})
	if got != "User: x\nAssistant: " {
		t.Fatalf("unknown roles should default to user, got %q", got)
	}
}
