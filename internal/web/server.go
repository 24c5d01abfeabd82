package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"netsonic/internal/isp"
	"netsonic/internal/logging"
	"netsonic/internal/models"
	"netsonic/internal/payload"
	"netsonic/internal/speedtest"
)

// Server handles web requests
type Server struct {
	store        models.ResultStore
	port         int
	staticFiles  fs.FS
	payloads     *payload.Cache
	resolver     *isp.Resolver
	geoip        isp.Enricher
	ispCache     *infoCache
	historyLimit int
	maxMbps      float64
	router       *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a new web server. store and staticFS may be nil.
func New(store models.ResultStore, port int, staticFS fs.FS) *Server {
	s := &Server{
		store:        store,
		port:         port,
		staticFiles:  staticFS,
		payloads:     payload.NewCache(),
		ispCache:     newInfoCache(time.Hour),
		historyLimit: 10,
		maxMbps:      speedtest.DefaultMaxPlausibleMbps,
	}
	s.setupRoutes()
	return s
}

// WithISP configures ISP lookup. Either argument may be nil.
func (s *Server) WithISP(resolver *isp.Resolver, geoip isp.Enricher) *Server {
	s.resolver = resolver
	s.geoip = geoip
	return s
}

// WithHistoryLimit sets the default number of results /api/history returns
func (s *Server) WithHistoryLimit(n int) *Server {
	if n > 0 {
		s.historyLimit = n
	}
	return s
}

// WithMaxPlausibleMbps sets the speed above which submitted results are rejected
func (s *Server) WithMaxPlausibleMbps(mbps float64) *Server {
	if mbps > 0 {
		s.maxMbps = mbps
	}
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	if err := router.SetTrustedProxies(nil); err != nil {
		log.Printf("Failed to configure trusted proxies: %v", err)
	}

	api := router.Group("/api")
	api.Use(corsHeaders())
	{
		api.HEAD("/ping", s.handlePingHead)
		api.GET("/ping", s.handlePing)
		api.GET("/download/:size", s.handleDownload)
		api.POST("/upload", s.handleUpload)
		api.GET("/get-isp", s.handleGetISP)
		api.GET("/history", s.handleHistory)
		api.POST("/history", s.handleSaveResult)
		api.GET("/summary", s.handleSummary)
	}

	// Static files - serve embedded static/ directory as webroot
	if s.staticFiles != nil {
		staticFS, err := fs.Sub(s.staticFiles, "static")
		if err != nil {
			log.Printf("Failed to open static files: %v", err)
		} else {
			router.NoRoute(gin.WrapH(http.FileServer(http.FS(staticFS))))
		}
	}

	s.router = router
}

// Start starts the web server and blocks until it is stopped
func (s *Server) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	log.Printf("Web server starting on port %d", s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	log.Println("Stopping web server...")
	return srv.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debugf("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func corsHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}
