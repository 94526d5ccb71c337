package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aicore/internal/cache"
	"aicore/pkg/types"
)

// handleHealth reports service, registry and cache health.
//
// @Summary Service health
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Router /api/v1/health [get]
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	models := s.svc.ListModels()
	resp := types.HealthResponse{
		Status:        "healthy",
		Service:       "aicore",
		Version:       s.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Models: types.HealthModels{
			Total:   len(models),
			Loaded:  s.svc.LoadedCount(),
			Default: s.svc.DefaultModel(),
		},
	}
	if _, noop := s.cache.(cache.NoopCache); !noop {
		resp.Cache.Enabled = true
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cache.Ping(ctx); err != nil {
			resp.Cache.Error = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Cache.Connected = true
		}
	}
	if !s.svc.Ready() {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAuthToken exchanges an API key for a short-lived bearer token.
//
// @Summary Exchange an API key for a JWT
// @Success 200 {object} types.TokenResponse
// @Failure 401 {object} types.ErrorResponse
// @Router /api/v1/auth/token [post]
func (s *server) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(s.auth.Header())
	tok, expiresIn, err := s.auth.IssueToken(key)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.TokenResponse{Token: tok, ExpiresIn: expiresIn})
}

// handleListModels lists configured models with their load state.
//
// @Summary List models
// @Produce json
// @Success 200 {object} types.ModelListResponse
// @Router /api/v1/models [get]
func (s *server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models := s.svc.ListModels()
	resp := types.ModelListResponse{
		Models:       make([]types.ModelStatus, 0, len(models)),
		DefaultModel: s.svc.DefaultModel(),
		TotalModels:  len(models),
	}
	for _, m := range models {
		loaded := s.svc.IsLoaded(m.Name)
		if loaded {
			resp.LoadedModels++
		}
		resp.Models = append(resp.Models, types.ModelStatus{Model: m, Loaded: loaded})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetModel returns one configured model by name.
//
// @Summary Get one model
// @Produce json
// @Success 200 {object} types.ModelStatus
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/models/{name} [get]
func (s *server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, m := range s.svc.ListModels() {
		if m.Name == name {
			writeJSON(w, http.StatusOK, types.ModelStatus{Model: m, Loaded: s.svc.IsLoaded(name)})
			return
		}
	}
	writeJSONError(w, http.StatusNotFound, "model not found: "+name)
}

// handleLoadModel loads a model eagerly.
//
// @Summary Load a model
// @Accept json
// @Produce json
// @Param request body types.LoadRequest true "load request"
// @Success 200 {object} types.LoadResponse
// @Router /api/v1/models/load [post]
func (s *server) handleLoadModel(w http.ResponseWriter, r *http.Request) {
	var req types.LoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	d, err := s.svc.Load(ctx, req.Model, req.Force)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	name := req.Model
	if name == "" {
		name = s.svc.DefaultModel()
	}
	writeJSON(w, http.StatusOK, types.LoadResponse{
		Success:  true,
		Model:    name,
		LoadTime: d.Seconds(),
		Message:  "model loaded",
	})
}

// handleUnloadModel drains and removes a resident model.
//
// @Summary Unload a model
// @Accept json
// @Produce json
// @Param request body types.UnloadRequest true "unload request"
// @Success 200 {object} types.UnloadResponse
// @Router /api/v1/models/unload [post]
func (s *server) handleUnloadModel(w http.ResponseWriter, r *http.Request) {
	var req types.UnloadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.Unload(req.Model); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UnloadResponse{Success: true, Model: req.Model, Message: "model unloaded"})
}

// handleGenerate runs a completion, served from the response cache when the
// same request was answered recently.
//
// @Summary Generate a completion
// @Accept json
// @Produce json
// @Param request body types.GenerateRequest true "generate request"
// @Success 200 {object} types.GenerateResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 429 {object} types.ErrorResponse
// @Router /api/v1/generate [post]
func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	key := cache.Key("generate", req)
	if cached, ok := s.cacheGet(r.Context(), key); ok {
		var resp types.GenerateResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			resp.Cached = true
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	start := time.Now()
	res, err := s.svc.Generate(ctx, req)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeServiceError(w, err)
		return
	}
	resp := types.GenerateResponse{
		Response:       res.Content,
		Model:          res.ModelName,
		TokensUsed:     res.Usage.TotalTokens,
		ProcessingTime: time.Since(start).Seconds(),
	}
	s.cacheSet(r.Context(), key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleChat answers a conversation turn. History is flattened into a
// single prompt with role prefixes; the trailing "Assistant: " cues the
// model to continue as the assistant.
//
// @Summary Chat with a model
// @Accept json
// @Produce json
// @Param request body types.ChatRequest true "chat request"
// @Success 200 {object} types.ChatResponse
// @Router /api/v1/chat [post]
func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	history := req.Messages
	if len(history) == 0 {
		if strings.TrimSpace(req.Message) == "" {
			writeJSONError(w, http.StatusBadRequest, "message or messages is required")
			return
		}
		history = []types.ChatMessage{{Role: "user", Content: req.Message}}
	}

	genReq := types.GenerateRequest{
		Prompt:      flattenChat(history),
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	key := cache.Key("chat", genReq)
	if cached, ok := s.cacheGet(r.Context(), key); ok {
		var resp types.ChatResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	start := time.Now()
	res, err := s.svc.Generate(ctx, genReq)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeServiceError(w, err)
		return
	}
	resp := types.ChatResponse{
		Response:       res.Content,
		Model:          res.ModelName,
		Messages:       append(history, types.ChatMessage{Role: "assistant", Content: res.Content}),
		TokensUsed:     res.Usage.TotalTokens,
		ProcessingTime: time.Since(start).Seconds(),
	}
	s.cacheSet(r.Context(), key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus reports detailed runtime state.
//
// @Summary Runtime status
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /api/v1/status [get]
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

// flattenChat turns a message history into the single-prompt form the
// adapters consume.
func flattenChat(msgs []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case "system":
			b.WriteString("System: ")
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("Assistant: ")
	return b.String()
}

// cacheGet is a best-effort lookup; backend errors degrade to a miss.
func (s *server) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache get failed")
		CacheMiss()
		return nil, false
	}
	if ok {
		CacheHit()
	} else {
		CacheMiss()
	}
	return b, ok
}

// cacheSet stores a response; failures are logged, never surfaced.
func (s *server) cacheSet(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("cache set failed")
	}
}

// decodeJSON enforces content type and body limits, then decodes into dst.
// On failure it writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; nothing left to do but note it in metrics.
		IncrementEncodeFailure()
	}
}
