package api

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgallion1/casefinder/internal/blobstore"
	"github.com/dgallion1/casefinder/internal/report"
	"github.com/dgallion1/casefinder/internal/store"
	"github.com/dgallion1/casefinder/internal/summary"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func (s *Server) handlePDFReport(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, "pdf", "application/pdf", func(out io.Writer, in report.Input) error {
		return report.PDF(out, in, report.PDFOptions{FontPath: s.cfg.ReportFontPath})
	})
}

func (s *Server) handleDOCXReport(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, "docx", docxContentType, report.DOCX)
}

// serveReport renders the latest summary of a case as an attachment.
func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, ext, contentType string, render func(io.Writer, report.Input) error) {
	c, ok := s.loadCase(w, r)
	if !ok {
		return
	}
	sum, err := s.cases.LatestSummary(r.Context(), c.ID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "case has no summary", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("latest summary failed", "case_id", c.ID, "error", err)
		jsonError(w, "failed to load summary", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	in := report.Input{
		CaseID:       c.ID,
		Filename:     c.Filename,
		CustomerName: c.CustomerName,
		SystemName:   c.SystemName,
		Summary: summary.Result{
			Problem:  sum.Problem,
			Solution: sum.Solution,
			Outcome:  sum.Outcome,
		},
		Generated: now,
	}

	var buf bytes.Buffer
	if err := render(&buf, in); err != nil {
		s.log.Error("render report failed", "case_id", c.ID, "format", ext, "error", err)
		jsonError(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	serveAttachment(w, report.Filename(c.ID, ext, now), contentType, buf.Bytes())
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCase(w, r)
	if !ok {
		return
	}
	data, err := s.blobs.Get(r.Context(), c.StoredPath)
	if errors.Is(err, blobstore.ErrNotFound) {
		jsonError(w, "stored file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("read stored file failed", "case_id", c.ID, "key", c.StoredPath, "error", err)
		jsonError(w, "failed to read stored file", http.StatusInternalServerError)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(c.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	serveAttachment(w, c.Filename, contentType, data)
}

func serveAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
