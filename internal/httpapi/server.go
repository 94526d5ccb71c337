package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"aicore/internal/auth"
	"aicore/internal/cache"
	"aicore/internal/manager"
	"aicore/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	DefaultModel() string
	IsLoaded(name string) bool
	LoadedCount() int
	Status() types.StatusResponse
	Generate(ctx context.Context, req types.GenerateRequest) (manager.GenerateResult, error)
	Load(ctx context.Context, name string, force bool) (time.Duration, error)
	Unload(name string) error
	Ready() bool
}

// Options configures the optional collaborators of the HTTP layer. Zero
// values mean: no caching, open auth, nop logging.
type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Auth     *auth.Authenticator
	Logger   zerolog.Logger
	Version  string
}

// server bundles the service with its collaborators for the handlers.
type server struct {
	svc      Service
	cache    cache.Cache
	cacheTTL time.Duration
	auth     *auth.Authenticator
	log      zerolog.Logger
	version  string
	started  time.Time
}

// NewMux builds the complete HTTP handler: operational endpoints at the
// root, the versioned API under /api/v1.
func NewMux(svc Service, opts Options) http.Handler {
	s := &server{
		svc:      svc,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		auth:     opts.Auth,
		log:      opts.Logger,
		version:  opts.Version,
		started:  time.Now(),
	}
	if s.cache == nil {
		s.cache = cache.NewNoop()
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = time.Hour
	}
	if s.auth == nil {
		s.auth = auth.New(auth.Config{})
	}
	if s.version == "" {
		s.version = "dev"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)
	r.Use(s.requestLogger)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	r.Route("/api/v1", func(r chi.Router) {
		// Health and token exchange stay open so probes and login work
		// without a key.
		r.Get("/health", s.handleHealth)
		r.Post("/auth/token", s.handleAuthToken)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/models", s.handleListModels)
			r.Get("/models/{name}", s.handleGetModel)
			r.Post("/models/load", s.handleLoadModel)
			r.Post("/models/unload", s.handleUnloadModel)
			r.Post("/generate", s.handleGenerate)
			r.Post("/chat", s.handleChat)
			r.Get("/status", s.handleStatus)
		})
	})

	return r
}

// securityHeaders sets conservative response headers on every route.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects requests without valid credentials when auth is on.
func (s *server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Authenticate(r); err != nil {
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one structured line per request.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		ev := s.log.Info()
		if sr.status >= 500 {
			ev = s.log.Error()
		}
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			ev = ev.Str("request_id", rid)
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sr.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}
