package server

import (
	"context"
	"fmt"
	"time"

	"agenthub/app/agent"
	"agenthub/app/api"
	"agenthub/app/middleware"
	"agenthub/config"
	"agenthub/generation"
	"agenthub/loader"
	"agenthub/model"
	"agenthub/review"
	"agenthub/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Backend is everything the server uses of the agent backend.
type Backend interface {
	generation.Streamer
	review.Streamer
	agent.EmailBackend
	agent.BlogBackend
	agent.CatalogSource
	api.HealthChecker
}

type Deps struct {
	Config  config.Config
	Backend Backend
	Storer  store.SessionStorer
	Loader  *loader.Loader
	Log     *zap.Logger
}

// NewApp builds the Fiber app with every route and the session manager behind
// it.
func NewApp(d Deps) (*fiber.App, *agent.Manager) {
	cfg := d.Config
	log := d.Log

	manager := agent.NewManager(d.Backend, d.Backend, d.Storer, agent.PRDConfig{
		Total:         cfg.PRDTotalSections,
		StreamTimeout: cfg.StreamTimeout,
		Budget:        agent.Budget{Limit: cfg.ContextTokenLimit, Log: log},
		Log:           log,
	})

	var (
		app = fiber.New(fiber.Config{
			ErrorHandler: api.NewErrorHandler(log),
			BodyLimit:    loader.MaxFileSize + 1<<20,
		})
		checkHandler  = api.NewCheckHandler(d.Backend)
		agentsHandler = api.NewAgentsHandler(d.Backend, log)
		sourceHandler = api.NewSourceHandler(d.Loader)
		prdHandler    = api.NewPRDHandler(manager, review.NewReviewer(d.Backend, log), cfg.PRDContext, cfg.PRDReviewContext)
		emailHandler  = api.NewEmailHandler(manager)
		blogHandler   = api.NewBlogHandler(agent.NewBlog(d.Backend))
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	app.Use(middleware.PlugStatic("/api", "/check"))

	check.Get("/healthy", checkHandler.HandleHealthy)
	check.Get("/backend", checkHandler.HandleBackend)

	apiv1.Get("/assistants", agentsHandler.HandleList)

	apiv1.Post("/sources", sourceHandler.HandleUpload)
	apiv1.Post("/sources/text", sourceHandler.HandleText)
	apiv1.Post("/sources/url", sourceHandler.HandleURL)

	prd := apiv1.Group("/prd")
	prd.Post("/review", prdHandler.HandleReview)
	prd.Post("/sessions", prdHandler.HandleCreate)
	prd.Get("/sessions/:id", prdHandler.HandleGet)
	prd.Delete("/sessions/:id", prdHandler.HandleDelete)
	prd.Post("/sessions/:id/approve", prdHandler.HandleApprove)
	prd.Get("/sessions/:id/export", prdHandler.HandleExport)
	prd.Get("/sessions/:id/markdown", prdHandler.HandleMarkdown)
	prd.Post("/sessions/:id/sections/:sid/edit", prdHandler.HandleBeginEdit)
	prd.Put("/sessions/:id/sections/:sid/draft", prdHandler.HandleDraft)
	prd.Post("/sessions/:id/sections/:sid/save", prdHandler.HandleSave)
	prd.Post("/sessions/:id/sections/:sid/cancel", prdHandler.HandleCancel)
	prd.Post("/sessions/:id/sections/:sid/normalize", prdHandler.HandleNormalize)

	apiv1.Post("/email/respond", emailHandler.HandleRespond)
	apiv1.Post("/email/evaluate", emailHandler.HandleEvaluate)

	apiv1.Get("/blog/types", blogHandler.HandleTypes)
	apiv1.Post("/blog/create", blogHandler.HandleCreate)
	apiv1.Post("/blog/review", blogHandler.HandleReview)

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
		app.Use(middleware.SPAFallback(cfg.StaticDir, "/api", "/check"))
	}

	return app, manager
}

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	app     *fiber.App
	manager *agent.Manager
	storer  store.SessionStorer
}

func NewServer(cfg config.Config, log *zap.Logger) *Server {
	return &Server{
		cfg: cfg,
		log: log,
	}
}

func (s *Server) newStorer(ctx context.Context) (store.SessionStorer, error) {
	if !s.cfg.UsePostgres() {
		s.log.Info("no PG_HOST set, sessions are kept in memory")
		return store.NewMemoryStore(), nil
	}

	pg, err := store.NewPostgresStore(ctx, s.cfg.PostgresConnString(), s.log)
	if err != nil {
		return nil, fmt.Errorf("error to connect to Postgres database: %w", err)
	}
	if err := pg.Init(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("error to create tables: %w", err)
	}
	return pg, nil
}

// Init connects the session store and builds the app. It runs before Run.
func (s *Server) Init(ctx context.Context) error {
	storer, err := s.newStorer(ctx)
	if err != nil {
		return err
	}
	s.storer = storer

	ldr := loader.New(
		loader.WithDocling(s.cfg.DoclingURL, nil),
		loader.WithWorkDir(s.cfg.UploadDir),
		loader.WithCrop(s.cfg.PDFCropTop, s.cfg.PDFCropBottom),
		loader.WithLogger(s.log),
	)

	s.app, s.manager = NewApp(Deps{
		Config:  s.cfg,
		Backend: model.NewBackend(s.cfg.BackendURL, nil),
		Storer:  storer,
		Loader:  ldr,
		Log:     s.log,
	})
	return nil
}

// Run blocks serving requests until Stop is called or listening fails.
func (s *Server) Run() error {
	s.log.Info("server starting",
		zap.String("addr", s.cfg.ServerAddr),
		zap.String("backend", s.cfg.BackendURL))
	if err := s.app.Listen(s.cfg.ServerAddr); err != nil {
		return fmt.Errorf("error to start server: %w", err)
	}
	return nil
}

func (s *Server) Stop() {
	if s.app != nil {
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.log.Warn("shutdown failed", zap.Error(err))
		}
	}
	if s.manager != nil {
		s.manager.Close()
	}
	if s.storer != nil {
		s.storer.Close()
	}
	s.log.Info("server stopped")
}
