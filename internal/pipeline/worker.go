package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/casefinder/internal/blobstore"
	"github.com/dgallion1/casefinder/internal/doctree"
	"github.com/dgallion1/casefinder/internal/parser"
	"github.com/dgallion1/casefinder/internal/store"
	"github.com/dgallion1/casefinder/internal/summary"
)

// CaseStore is the part of the case database the worker writes to.
type CaseStore interface {
	CreateCase(ctx context.Context, c store.Case) (int64, error)
	FindCaseByHash(ctx context.Context, hash string) (*store.Case, error)
	InsertSummary(ctx context.Context, sum store.Summary) (int64, error)
}

// Worker turns one uploaded file into a stored case.
type Worker struct {
	cases     CaseStore
	blobs     blobstore.Store
	extractor *summary.Extractor
	parsers   parser.Options
	stats     *Stats
	log       *slog.Logger

	autoSummarize bool
	backoff       func(int) time.Duration
}

// WorkerDeps bundles what a Worker needs.
type WorkerDeps struct {
	Cases         CaseStore
	Blobs         blobstore.Store
	Extractor     *summary.Extractor
	Parsers       parser.Options
	Stats         *Stats
	AutoSummarize bool
}

func NewWorker(deps WorkerDeps, log *slog.Logger) *Worker {
	stats := deps.Stats
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	extractor := deps.Extractor
	if extractor == nil {
		extractor = summary.New(summary.DefaultLexicon())
	}
	return &Worker{
		cases:         deps.Cases,
		blobs:         deps.Blobs,
		extractor:     extractor,
		parsers:       deps.Parsers,
		stats:         stats,
		log:           log,
		autoSummarize: deps.AutoSummarize,
		backoff:       Backoff,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	if err := ctx.Err(); err != nil {
		job.AddError("cancelled before processing")
		job.SetStatus(StatusFailed, "queued")
		return
	}

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	data := job.FileData()
	p, err := w.parsers.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	start := time.Now()
	tree, err := p.Parse(bytes.NewReader(data), job.Filename)
	w.stats.Record(strings.ToLower(filepath.Ext(job.Filename)), time.Since(start))
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	text := doctree.Flatten(tree)
	if strings.TrimSpace(text) == "" {
		log.Warn("no extractable text")
		job.AddError("no extractable text")
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	hash := ContentHashHex([]byte(text))
	chars, pages := utf8.RuneCountInString(text), doctree.PageCount(tree)
	job.SetText(hash, chars, pages)
	log.Info("parsed document", "chars", chars, "pages", pages, "duration_ms", time.Since(start).Milliseconds())

	// Phase 1.5: Dedup check
	if !job.Force {
		existing, err := w.cases.FindCaseByHash(ctx, hash)
		switch {
		case err == nil:
			log.Info("duplicate document, skipping", "existing_case_id", existing.ID)
			job.SetDuplicate(existing.ID)
			return
		case errors.Is(err, store.ErrNotFound):
		default:
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 2: Store the original file and the case row.
	job.SetStatus(StatusStoring, "storing")
	key, err := withRetry(ctx, log, "blob put", w.backoff, func() (string, error) {
		return w.blobs.Put(ctx, job.Filename, data)
	})
	if err != nil {
		log.Error("blob write failed", "error", err)
		job.AddError(fmt.Sprintf("store file: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	caseID, err := withRetry(ctx, log, "insert case", w.backoff, func() (int64, error) {
		return w.cases.CreateCase(ctx, store.Case{
			Filename:    job.Filename,
			StoredPath:  key,
			TextContent: text,
			ContentHash: hash,
		})
	})
	if err != nil {
		log.Error("case insert failed", "error", err)
		job.AddError(fmt.Sprintf("store case: %s", err))
		if delErr := w.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			log.Warn("orphaned blob", "key", key, "error", delErr)
		}
		job.SetStatus(StatusFailed, "storing")
		return
	}
	job.SetCase(caseID)
	log = log.With("case_id", caseID)
	log.Info("case stored", "key", key)

	// Phase 3: Summarize
	if w.autoSummarize {
		job.SetStatus(StatusSummarizing, "summarizing")
		res := w.extractor.Extract(text)
		if res.Empty() {
			log.Info("no summary sections found")
			job.AddNote("could not summarize")
		} else {
			_, err := w.cases.InsertSummary(ctx, store.Summary{
				CaseID:   caseID,
				Problem:  res.Problem,
				Solution: res.Solution,
				Outcome:  res.Outcome,
			})
			if err != nil {
				log.Error("summary insert failed", "error", err)
				job.AddError(fmt.Sprintf("store summary: %s", err))
				job.SetStatus(StatusPartial, "done")
				return
			}
			job.SetSummarized()
		}
	}

	job.SetStatus(StatusCompleted, "done")
}
