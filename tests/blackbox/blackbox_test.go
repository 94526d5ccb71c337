// Package blackbox exercises the whole serving stack end to end: a real
// registry file on disk, the manager with the echo adapter, auth and the
// response cache, all behind the public HTTP surface.
package blackbox

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aicore/internal/auth"
	"aicore/internal/cache"
	"aicore/internal/httpapi"
	"aicore/internal/manager"
	"aicore/internal/registry"
	"aicore/pkg/types"
)

const modelsJSON = `{
  "models": {
    "mistral-7b-instruct": {
      "type": "transformers",
      "path": "mistralai/Mistral-7B-Instruct-v0.2",
      "format": "safetensor",
      "max_memory": "8GB"
    },
    "tinyllama-q4": {
      "path": "models/tinyllama-q4.gguf",
      "format": "gguf",
      "max_memory": "1GB"
    }
  },
  "default_model": "mistral-7b-instruct"
}`

const apiKey = "blackbox-test-key"

func startStack(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "models.json")
	if err := os.WriteFile(cfgPath, []byte(modelsJSON), 0o644); err != nil {
		t.Fatalf("write models.json: %v", err)
	}

	reg, err := registry.Load(cfgPath)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:     reg.List(),
		DefaultModel: reg.DefaultModel,
		BudgetMB:     16384,
	})
	a := auth.New(auth.Config{APIKeys: []string{apiKey}, JWTSecret: "blackbox-secret"})
	mux := httpapi.NewMux(mgr, httpapi.Options{
		Cache:    cache.NewMemory(),
		CacheTTL: time.Minute,
		Auth:     a,
		Version:  "blackbox",
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-API-Key", apiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func TestFullFlow(t *testing.T) {
	base := startStack(t)

	// health is open and reports the registry
	resp, body := get(t, base+"/api/v1/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health %d %s", resp.StatusCode, body)
	}
	var health types.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("health json: %v", err)
	}
	if health.Status != "healthy" || health.Models.Total != 2 || health.Models.Default != "mistral-7b-instruct" {
		t.Fatalf("unexpected health: %+v", health)
	}

	// models list
	resp, body = get(t, base+"/api/v1/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("models %d %s", resp.StatusCode, body)
	}
	var list types.ModelListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("models json: %v", err)
	}
	if list.TotalModels != 2 || list.LoadedModels != 0 {
		t.Fatalf("unexpected list: %+v", list)
	}

	// explicit load
	resp, body = postJSON(t, base+"/api/v1/models/load", types.LoadRequest{Model: "mistral-7b-instruct"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load %d %s", resp.StatusCode, body)
	}
	var load types.LoadResponse
	if err := json.Unmarshal(body, &load); err != nil {
		t.Fatalf("load json: %v", err)
	}
	if !load.Success || load.LoadTime <= 0 {
		t.Fatalf("unexpected load: %+v", load)
	}

	// chat uses the default model and echoes through the stub adapter
	resp, body = postJSON(t, base+"/api/v1/chat", types.ChatRequest{Message: "bonjour"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat %d %s", resp.StatusCode, body)
	}
	var chat types.ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		t.Fatalf("chat json: %v", err)
	}
	if chat.Model != "mistral-7b-instruct" || len(chat.Messages) != 2 {
		t.Fatalf("unexpected chat: %+v", chat)
	}

	// generate twice: second hit comes from the cache
	genReq := types.GenerateRequest{Prompt: "hello world"}
	resp, body = postJSON(t, base+"/api/v1/generate", genReq)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate %d %s", resp.StatusCode, body)
	}
	var gen1 types.GenerateResponse
	if err := json.Unmarshal(body, &gen1); err != nil {
		t.Fatalf("generate json: %v", err)
	}
	if gen1.Cached {
		t.Fatalf("first generate must not be cached")
	}
	_, body = postJSON(t, base+"/api/v1/generate", genReq)
	var gen2 types.GenerateResponse
	if err := json.Unmarshal(body, &gen2); err != nil {
		t.Fatalf("generate json: %v", err)
	}
	if !gen2.Cached || gen2.Response != gen1.Response {
		t.Fatalf("expected cached replay, got %+v", gen2)
	}

	// status shows a resident instance
	resp, body = get(t, base+"/api/v1/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d %s", resp.StatusCode, body)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v", err)
	}
	if len(st.Instances) == 0 || st.LoadsTotal == 0 {
		t.Fatalf("unexpected status: %+v", st)
	}

	// unload drains the instance
	resp, body = postJSON(t, base+"/api/v1/models/unload", types.UnloadRequest{Model: "mistral-7b-instruct"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unload %d %s", resp.StatusCode, body)
	}
	resp, body = get(t, base+"/api/v1/models/mistral-7b-instruct")
	var ms types.ModelStatus
	if err := json.Unmarshal(body, &ms); err != nil {
		t.Fatalf("model json: %v", err)
	}
	if ms.Loaded {
		t.Fatalf("expected model unloaded")
	}
}

func TestUnknownModel404(t *testing.T) {
	base := startStack(t)
	resp, body := postJSON(t, base+"/api/v1/generate", types.GenerateRequest{Prompt: "hi", Model: "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", resp.StatusCode, body)
	}
}

func TestAuthEnforced(t *testing.T) {
	base := startStack(t)

	req, _ := http.NewRequest(http.MethodGet, base+"/api/v1/models", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", resp.StatusCode)
	}

	// token exchange then bearer access
	tokReq, _ := http.NewRequest(http.MethodPost, base+"/api/v1/auth/token", nil)
	tokReq.Header.Set("X-API-Key", apiKey)
	resp, err = http.DefaultClient.Do(tokReq)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token exchange %d %s", resp.StatusCode, b)
	}
	var tok types.TokenResponse
	if err := json.Unmarshal(b, &tok); err != nil {
		t.Fatalf("token json: %v", err)
	}

	req, _ = http.NewRequest(http.MethodGet, base+"/api/v1/models", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", resp.StatusCode)
	}
}

func TestChatEchoFormat(t *testing.T) {
	base := startStack(t)
	resp, body := postJSON(t, base+"/api/v1/chat", types.ChatRequest{Message: "ping", Model: "tinyllama-q4"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat %d %s", resp.StatusCode, body)
	}
	var chat types.ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		t.Fatalf("chat json: %v", err)
	}
	want := "AI Model 'tinyllama-q4' received: User: ping Assistant:"
	if chat.Response != want {
		t.Fatalf("unexpected echo: %q want %q", chat.Response, want)
	}
}
