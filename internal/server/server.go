// Package server exposes the outreach console over HTTP: discovery triggers, draft and
// target management, and the polling surface the relayers talk to.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/drafts"
	"go-outreach-automation/internal/metrics"
	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Discovery is the workflow engine as the HTTP layer drives it.
type Discovery interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.Result, error)
	RunBatch(ctx context.Context, reqs []workflow.Request) ([]workflow.BatchItem, error)
	Enrich(ctx context.Context, targetID string) (*workflow.EnrichResult, error)
}

// Transcriber turns a chat screenshot uploaded by a relayer into text.
type Transcriber interface {
	ExtractConversation(ctx context.Context, screenshotPNG []byte) (string, error)
}

// CookieSink receives fresh X session cookies.
type CookieSink interface {
	AddCookies(cookies []models.Cookie) error
}

type Config struct {
	Env           string
	RelayerAPIKey string
	// DiscoveryRPM caps discovery triggers per minute. Zero means unlimited.
	DiscoveryRPM int
	// ClaimTTL is how long a relayer claim holds before the item is handed out again.
	ClaimTTL    time.Duration
	ClaimLimit  int
	CookiesPath string
}

func (c Config) production() bool { return c.Env == "production" }

type Deps struct {
	Store  database.Store
	Drafts *drafts.Service
	// Optional below.
	Discovery   Discovery
	Transcriber Transcriber
	Cookies     CookieSink
	Metrics     *metrics.Metrics
	Log         *zap.SugaredLogger
}

type Server struct {
	Deps
	cfg    Config
	router *gin.Engine
	now    func() time.Time
}

func New(cfg Config, deps Deps) *Server {
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 10 * time.Minute
	}
	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = 10
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if cfg.production() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{Deps: deps, cfg: cfg, now: time.Now}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.routes(r)
	s.router = r
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.health)
	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	api := r.Group("/api")

	relayer := api.Group("/relayer", s.relayerAuth())
	relayer.GET("/approved-pending", s.approvedPending)
	relayer.GET("/capture-requests", s.captureRequests)
	relayer.GET("/x-auth-requests", s.authRequests)
	relayer.POST("/mark-prepared/:id", s.markPrepared)
	relayer.POST("/mark-failed/:id", s.markFailed)
	relayer.POST("/capture-complete/:id", s.captureComplete)
	relayer.POST("/x-auth-complete/:id", s.authComplete)

	discovery := api.Group("/discovery", rateLimit(s.cfg.DiscoveryRPM))
	discovery.POST("/run", s.runDiscovery)
	discovery.POST("/batch", s.runBatch)

	targets := api.Group("/targets")
	targets.GET("", s.listTargets)
	targets.POST("", s.createTarget)
	targets.GET("/:id", s.getTarget)
	targets.POST("/:id/status", s.setTargetStatus)
	targets.GET("/:id/contacts", s.targetContacts)
	targets.POST("/:id/enrich", s.enrichTarget)

	d := api.Group("/drafts")
	d.GET("", s.listDrafts)
	d.GET("/:id", s.getDraft)
	d.PUT("/:id", s.editDraft)
	d.POST("/:id/approve", s.approveDraft)
	d.POST("/:id/skip", s.skipDraft)
	d.POST("/:id/regenerate", s.regenerateDraft)
	d.POST("/:id/followup", s.followUpDraft)

	api.POST("/contacts/:id/capture", s.requestCapture)
	api.POST("/auth-requests", s.requestAuth)
}

// Handler returns the router, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.Log.Infof("🌐 Server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Outreach console is running!",
		"status":  "healthy",
	})
}
