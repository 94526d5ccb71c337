package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"aicore/internal/auth"
	"aicore/internal/cache"
	"aicore/internal/httpapi"
	"aicore/internal/manager"
	"aicore/internal/registry"
	"aicore/internal/settings"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig resolves the effective settings in increasing precedence:
// built-in defaults, the optional config file, environment variables, then
// flags the caller explicitly set.
func loadConfig(args []string) (settings.Settings, error) {
	base := settings.Default()

	fs := flag.NewFlagSet("aicored", flag.ContinueOnError)
	configFile := fs.String("config", os.Getenv("AICORE_CONFIG"), "Optional config file (yaml/json/toml)")
	host := fs.String("host", base.Host, "Listen host")
	port := fs.Int("port", base.Port, "Listen port")
	modelConfig := fs.String("model-config", base.ModelConfigPath, "Path to models.json")
	defaultModel := fs.String("default-model", base.DefaultModel, "Default model when request omits one")
	budgetMB := fs.Int("memory-budget-mb", base.MemoryBudgetMB, "Memory budget in MB for all instances (0=unlimited)")
	marginMB := fs.Int("memory-margin-mb", base.MemoryMarginMB, "Reserved memory margin in MB to keep free")
	adapter := fs.String("adapter", base.Adapter, "Inference adapter: echo|llama")
	logLevel := fs.String("log-level", base.LogLevel, "Log level: debug|info|warn|error")
	logFormat := fs.String("log-format", base.LogFormat, "Log format: json|console")
	if err := fs.Parse(args); err != nil {
		return base, err
	}

	cfg := base
	if *configFile != "" {
		fc, err := settings.LoadFile(*configFile)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		cfg = fc.Apply(cfg)
	}
	cfg = cfg.FromEnv()

	// Only flags the caller actually set override the file and environment;
	// flag defaults must not clobber the layers underneath.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["host"] {
		cfg.Host = *host
	}
	if set["port"] {
		cfg.Port = *port
	}
	if set["model-config"] {
		cfg.ModelConfigPath = *modelConfig
	}
	if set["default-model"] {
		cfg.DefaultModel = *defaultModel
	}
	if set["memory-budget-mb"] {
		cfg.MemoryBudgetMB = *budgetMB
	}
	if set["memory-margin-mb"] {
		cfg.MemoryMarginMB = *marginMB
	}
	if set["adapter"] {
		cfg.Adapter = *adapter
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if set["log-format"] {
		cfg.LogFormat = *logFormat
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat)

	reg, err := registry.Load(cfg.ModelConfigPath)
	if err != nil {
		return fmt.Errorf("load model config: %w", err)
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = reg.DefaultModel
	}
	log.Info().Str("path", cfg.ModelConfigPath).Int("models", len(reg.Models)).Msg("model config loaded")

	adpt, err := manager.NewAdapter(cfg.Adapter, cfg.LlamaCtx, cfg.LlamaThreads)
	if err != nil {
		return err
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:            reg.List(),
		DefaultModel:        cfg.DefaultModel,
		BudgetMB:            cfg.MemoryBudgetMB,
		MarginMB:            cfg.MemoryMarginMB,
		MaxQueueDepth:       cfg.MaxQueueDepth,
		MaxWait:             cfg.MaxQueueWait,
		LoadTimeout:         cfg.LoadTimeout,
		DrainTimeout:        cfg.UnloadTimeout,
		MaxPromptLength:     cfg.MaxPromptLength,
		MaxTokensPerRequest: cfg.MaxTokensPerRequest,
		Adapter:             adpt,
	})

	// Hot reload: config file edits swap the registry without a restart.
	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	go registry.Watch(baseCtx, cfg.ModelConfigPath, log, func(f *registry.File) {
		def := cfg.DefaultModel
		if f.DefaultModel != "" {
			def = f.DefaultModel
		}
		mgr.SetRegistry(f.List(), def)
	})

	var respCache cache.Cache = cache.NewNoop()
	if cfg.CacheEnabled {
		rc, err := cache.NewRedis(cache.RedisOptions{
			URL:      cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.RedisTimeout,
		})
		if err != nil {
			return fmt.Errorf("configure redis cache: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(baseCtx, cfg.RedisTimeout)
		if err := rc.Ping(pingCtx); err != nil {
			// A dead Redis degrades to uncached serving rather than
			// refusing to start.
			log.Warn().Err(err).Str("url", cfg.RedisURL).Msg("redis unreachable, caching disabled")
			rc.Close()
		} else {
			respCache = rc
		}
		cancel()
	}
	defer respCache.Close()

	authn := auth.New(auth.Config{
		APIKeys:   cfg.APIKeys,
		Header:    cfg.APIKeyHeader,
		JWTSecret: cfg.JWTSecret,
		JWTExpiry: cfg.JWTExpiry,
	})
	if !authn.Enabled() {
		log.Warn().Msg("no API keys configured, authentication disabled")
	}

	httpapi.SetBaseContext(baseCtx)
	httpapi.SetCORSOptions(cfg.EnableCORS, cfg.AllowedOrigins)
	mux := httpapi.NewMux(mgr, httpapi.Options{
		Cache:    respCache,
		CacheTTL: cfg.CacheTTL,
		Auth:     authn,
		Logger:   log,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("adapter", cfg.Adapter).Msg("aicored listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	// Cancel in-flight work, then drain connections.
	baseCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	return nil
}

func newLogger(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(lvl).With().Timestamp().Logger()
}
