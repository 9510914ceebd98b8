package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pixel-knight/pixelknight/config"
	"github.com/pixel-knight/pixelknight/internal/image"
	"github.com/pixel-knight/pixelknight/internal/llm"
	"github.com/pixel-knight/pixelknight/internal/provider"
	"github.com/pixel-knight/pixelknight/internal/rag"
	"github.com/pixel-knight/pixelknight/internal/research"
	"github.com/pixel-knight/pixelknight/internal/search"
	"github.com/pixel-knight/pixelknight/internal/store"
	"github.com/pixel-knight/pixelknight/internal/telemetry"
	"github.com/pixel-knight/pixelknight/internal/youtube"
	"github.com/pixel-knight/pixelknight/models"
)

// Server wires the HTTP layer to the underlying services. The LLM and
// search sections of cfg can change at runtime through the settings
// endpoints; cfgMu guards them. Everything else in cfg is read-only after
// startup.
type Server struct {
	cfgMu    sync.RWMutex
	cfg      *config.Config
	store    store.Store
	llm      *llm.Client
	registry *provider.Registry
	search   *search.Service
	agent    *research.Agent
	rag      *rag.Index
	images   *image.Generator
	youtube  *youtube.Service
	metrics  *telemetry.Metrics
	logger   *log.Logger
}

// New assembles a Server from already constructed dependencies. Used by Run
// and directly by handler tests.
func New(cfg *config.Config, st store.Store, client *llm.Client, registry *provider.Registry,
	searcher *search.Service, agent *research.Agent, index *rag.Index,
	images *image.Generator, yt *youtube.Service, metrics *telemetry.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		llm:      client,
		registry: registry,
		search:   searcher,
		agent:    agent,
		rag:      index,
		images:   images,
		youtube:  yt,
		metrics:  metrics,
		logger:   log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
}

// Run builds all dependencies from config and serves until the listener
// fails.
func Run(cfg *config.Config, addr string) error {
	if cfg.Storage.Postgres.Enabled() {
		dsn, err := cfg.Storage.Postgres.DSN()
		if err != nil {
			return err
		}
		if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	st, err := store.NewStorage(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	factory := llm.NewFactory(cfg.LLM.Timeout)
	client := factory.Client(cfg.LLM.BaseURL, cfg.LLM.APIKey)

	cache := provider.NewModelCache(cfg.Storage.Redis)
	defer cache.Close()
	registry, err := provider.NewRegistry(cfg.Storage.File.DataDir, factory, cache)
	if err != nil {
		return err
	}

	searcher := search.NewService(cfg.Search)
	agent := research.NewAgent(searcher.Search, &completerAdapter{client})

	index, err := rag.NewIndex(cfg.Storage.File.DataDir)
	if err != nil {
		return err
	}
	defer index.Close()

	srv := New(cfg, st, client, registry, searcher,
		agent, index,
		image.NewGenerator(cfg.Images, cfg.Storage.File.DataDir),
		youtube.NewService(),
		telemetry.NewMetrics())

	e := newEcho(cfg)
	srv.RegisterRoutes(e)

	if addr == "" {
		addr = cfg.Server.Address
	}
	return e.Start(addr)
}

func newEcho(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))
	return e
}

// RegisterRoutes mounts every API route on e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api")
	api.GET("/models", s.listModels)

	api.GET("/providers", s.listProviders)
	api.GET("/providers/presets", s.providerPresets)
	api.POST("/providers", s.addProvider)
	api.POST("/providers/preset/:preset_key", s.addPresetProvider)
	api.PUT("/providers/:id", s.updateProvider)
	api.DELETE("/providers/:id", s.deleteProvider)
	api.POST("/providers/:id/toggle", s.toggleProvider)
	api.POST("/providers/:id/test", s.testProvider)

	api.GET("/sessions", s.listSessions)
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/search", s.searchSessions)
	api.GET("/sessions/:id", s.getSession)
	api.PUT("/sessions/:id", s.updateSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.POST("/sessions/:id/auto-name", s.autoNameSession)
	api.GET("/sessions/:id/export", s.exportSession)
	api.PUT("/sessions/:id/messages/:message_id", s.editMessage)

	api.POST("/chat", s.chat)
	api.POST("/chat/stream", s.chatStream)
	api.POST("/chat/:id/regenerate", s.regenerate)
	api.POST("/compare/chat", s.compareChat)

	api.POST("/research", s.researchRun)
	api.POST("/research/stream", s.researchStream)

	api.POST("/search/test", s.testSearch)
	api.POST("/settings/search", s.updateSearchSettings)

	api.GET("/presets", s.listPresets)
	api.GET("/presets/categories", s.presetCategories)
	api.GET("/presets/:id", s.getPreset)
	api.POST("/presets", s.createPreset)
	api.DELETE("/presets/:id", s.deletePreset)

	api.GET("/rag/files", s.ragFiles)
	api.POST("/rag/index", s.ragIndex)
	api.POST("/rag/upload", s.ragUpload)
	api.POST("/rag/index-url", s.ragIndexURL)
	api.DELETE("/rag/directory", s.ragRemoveDirectory)

	api.GET("/images/status", s.imageStatus)
	api.POST("/images/generate", s.generateImage)
	api.GET("/images", s.listImages)

	api.POST("/youtube/summarize", s.summarizeYouTube)

	api.POST("/tts", s.textToSpeech)
	api.GET("/usage", s.getUsage)
	api.GET("/config", s.getConfig)
	api.PUT("/config", s.updateConfig)
}

func (s *Server) defaultModel() string {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.LLM.DefaultModel
}

func (s *Server) searchSettings() (models.SearchProvider, int) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return models.SearchProvider(s.cfg.Search.DefaultProvider), s.cfg.Search.MaxResults
}

// completerAdapter narrows the LLM client to the research loop's interface.
type completerAdapter struct {
	client *llm.Client
}

func (a *completerAdapter) Complete(ctx context.Context, messages []research.Message, model, systemPrompt string, temperature float64, maxTokens int) (string, int, error) {
	converted := make([]llm.Message, len(messages))
	for i, m := range messages {
		converted[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return a.client.ChatCompletion(ctx, converted, model, systemPrompt, temperature, maxTokens)
}
