package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/casefinder/internal/blobstore"
	"github.com/dgallion1/casefinder/internal/config"
	"github.com/dgallion1/casefinder/internal/pipeline"
	"github.com/dgallion1/casefinder/internal/store"
	"github.com/dgallion1/casefinder/internal/summary"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CaseStore is the case database as the handlers use it.
type CaseStore interface {
	GetCase(ctx context.Context, id int64) (*store.Case, error)
	SearchCases(ctx context.Context, keyword string) ([]store.Case, error)
	CountCases(ctx context.Context) (int, error)
	UpdateMetadata(ctx context.Context, id int64, customer, system string) error
	DeleteCase(ctx context.Context, id int64) error
	InsertSummary(ctx context.Context, sum store.Summary) (int64, error)
	LatestSummary(ctx context.Context, caseID int64) (*store.Summary, error)
}

// Server is the HTTP API server for casefinder.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	cases        CaseStore
	blobs        blobstore.Store
	extractor    *summary.Extractor
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, cases CaseStore, blobs blobstore.Store, extractor *summary.Extractor, log *slog.Logger, cfg config.Config) *Server {
	if extractor == nil {
		extractor = summary.New(summary.DefaultLexicon())
	}
	s := &Server{
		orchestrator: orch,
		cases:        cases,
		blobs:        blobs,
		extractor:    extractor,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/cases", s.handleUpload)
		r.Post("/api/cases/batch", s.handleBatchUpload)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/cases", s.handleListCases)
		r.Route("/api/cases/{caseID}", func(r chi.Router) {
			r.Get("/", s.handleGetCase)
			r.Delete("/", s.handleDeleteCase)
			r.Put("/metadata", s.handleUpdateMetadata)
			r.Post("/summary", s.handleSaveSummary)
			r.Post("/summary/auto", s.handleAutoSummary)
			r.Get("/report.pdf", s.handlePDFReport)
			r.Get("/report.docx", s.handleDOCXReport)
			r.Get("/file", s.handleDownloadFile)
		})

		r.Get("/api/stats/parse", s.handleParseStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
