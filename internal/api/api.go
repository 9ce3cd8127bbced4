// Package api exposes FarmGenius pages over HTTP.
//
// Every browser client is identified by the X-Client-ID header (or the
// client_id query parameter for the websocket stream). Page operations are
// plain JSON endpoints under /api/v1; simulated actions answer 202 with the
// action info unless the caller passes wait=1. UI signals are pushed over
// the websocket at /api/v1/stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Defaults for the HTTP server.
const (
	DefaultAddr       = ":8080"
	DefaultUploadDir  = "/var/lib/farmgenius/uploads"
	MaxUploadBytes    = 16 << 20
	ClientIDHeader    = "X-Client-ID"
	clientIDQuery     = "client_id"
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	UploadDir      string
	StaticDir      string
	AllowedOrigins []string
	MaxUpload      int64
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithUploadDir sets where uploaded crop photos are saved.
func WithUploadDir(dir string) Option {
	return func(o *Opts) { o.UploadDir = dir }
}

// WithStaticDir serves a front end from dir for unmatched GET requests.
func WithStaticDir(dir string) Option {
	return func(o *Opts) { o.StaticDir = dir }
}

// WithAllowedOrigins restricts CORS. With none every origin is allowed.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *Opts) { o.AllowedOrigins = origins }
}

// WithMaxUpload caps the size of uploaded photos.
func WithMaxUpload(n int64) Option {
	return func(o *Opts) {
		if n > 0 {
			o.MaxUpload = n
		}
	}
}

// Server holds the page registry and the gin engine.
type Server struct {
	pages  *app.Pages
	opts   Opts
	engine *gin.Engine
}

// NewServer builds the HTTP surface over pages.
func NewServer(pages *app.Pages, opts ...Option) (*Server, error) {
	cfg := Opts{Addr: DefaultAddr, UploadDir: DefaultUploadDir, MaxUpload: MaxUploadBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", cfg.UploadDir, err)
	}
	s := &Server{pages: pages, opts: cfg}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(s.corsConfig()))
	r.MaxMultipartMemory = s.opts.MaxUpload

	r.GET("/healthz", s.healthHandler)
	r.POST("/analyze", s.analyzeHandler)
	r.Static("/uploads", s.opts.UploadDir)

	v1 := r.Group("/api/v1", s.clientMiddleware())
	v1.GET("/state", s.stateHandler)
	v1.GET("/languages", s.languagesHandler)
	v1.GET("/stream", s.streamHandler)

	v1.POST("/navigate", s.navigateHandler)
	v1.POST("/modals/:id/show", s.showModalHandler)
	v1.POST("/modals/hide", s.hideModalsHandler)
	v1.POST("/toast/dismiss", s.dismissToastHandler)

	v1.POST("/login", s.loginHandler)
	v1.POST("/register", s.registerHandler)
	v1.POST("/logout", s.logoutHandler)

	v1.POST("/theme/toggle", s.toggleThemeHandler)
	v1.POST("/language", s.languageHandler)

	v1.GET("/chat", s.conversationHandler)
	v1.POST("/chat", s.chatHandler)
	v1.POST("/voice/toggle", s.toggleVoiceHandler)
	v1.POST("/voice/transcript", s.transcriptHandler)

	v1.POST("/crop-disease/image", s.selectImageHandler)
	v1.POST("/crop-disease/analyze", s.analyzeImageHandler)
	v1.POST("/crop-disease/save", s.saveResultHandler)
	v1.POST("/crop-disease/share", s.shareResultHandler)

	v1.POST("/yield", s.predictYieldHandler)

	v1.POST("/market/trend", s.trendHandler)
	v1.POST("/market/comparison", s.comparisonHandler)
	v1.POST("/market/refresh", s.refreshMarketHandler)
	v1.POST("/market/filter", s.filterMarketHandler)
	v1.POST("/markets/filter", s.filterMarketsHandler)
	v1.POST("/policies/filter", s.filterPoliciesHandler)

	v1.POST("/news/next", s.nextNewsHandler)
	v1.POST("/news/prev", s.prevNewsHandler)

	if s.opts.StaticDir != "" {
		files := http.FileServer(http.Dir(s.opts.StaticDir))
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet {
				c.Status(http.StatusNotFound)
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", ClientIDHeader},
		ExposeHeaders: []string{ClientIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(s.opts.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: graceful shutdown failed", "error", err)
		return err
	}
	slog.Info("Server.Run: stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("Server.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"client", c.GetString(clientKey),
			"duration", time.Since(start))
	}
}
