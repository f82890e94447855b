package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/casefinder/internal/blobstore"
	"github.com/dgallion1/casefinder/internal/config"
	"github.com/dgallion1/casefinder/internal/pipeline"
	"github.com/dgallion1/casefinder/internal/store"
)

const (
	testKey   = "secret"
	caseStudy = "課題: 旧システムの老朽化により運用コストが増大していた\n提案: クラウド移行による運用コスト削減\n効果: 運用コストを30%削減した\n"
)

type testServer struct {
	srv   *Server
	cases *store.Store
	blobs *blobstore.Filesystem
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		APIKey:         testKey,
		MaxUploadBytes: 1 << 20,
		WorkerCount:    1,
		MaxQueueSize:   8,
		JobTTL:         time.Hour,
		AutoSummarize:  true,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	cases, err := store.New(context.Background(), filepath.Join(dir, "cases.db"), nil)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { cases.Close() })
	blobs, err := blobstore.NewFilesystem(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("creating blobstore: %v", err)
	}

	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, pipeline.WorkerDeps{Cases: cases, Blobs: blobs}, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return &testServer{
		srv:   NewServer(orch, cases, blobs, nil, log, cfg),
		cases: cases,
		blobs: blobs,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(t *testing.T, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	return ts.do(t, method, path, body, "application/json")
}

// seedCase stores a case and its file directly, bypassing the pipeline.
func (ts *testServer) seedCase(t *testing.T, filename, text string) int64 {
	t.Helper()
	ctx := context.Background()
	key, err := ts.blobs.Put(ctx, filename, []byte(text))
	if err != nil {
		t.Fatal(err)
	}
	id, err := ts.cases.CreateCase(ctx, store.Case{Filename: filename, StoredPath: key, TextContent: text})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

type upload struct {
	name    string
	content string
}

func multipartBody(t *testing.T, field string, files []upload, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(field, f.name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(f.content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestHealth_NoAuth(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			ts.srv.ServeHTTP(rec, req)
			expectStatus(t, rec, http.StatusUnauthorized)
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON error, got content type %q", ct)
			}
		})
	}
}

func waitJob(t *testing.T, ts *testServer, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec := ts.do(t, http.MethodGet, "/api/jobs/"+jobID, nil, "")
		expectStatus(t, rec, http.StatusOK)
		snap := decode[pipeline.JobSnapshot](t, rec)
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return pipeline.JobSnapshot{}
}

func TestUpload_EndToEnd(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartBody(t, "file", []upload{{"事例.txt", caseStudy}}, nil)
	rec := ts.do(t, http.MethodPost, "/api/cases", body, ct)
	expectStatus(t, rec, http.StatusAccepted)
	accepted := decode[map[string]any](t, rec)
	jobID, _ := accepted["job_id"].(string)
	if jobID == "" || accepted["poll_url"] != "/api/jobs/"+jobID {
		t.Fatalf("unexpected accept body %v", accepted)
	}

	snap := waitJob(t, ts, jobID)
	if snap.Status != pipeline.StatusCompleted || snap.CaseID == 0 {
		t.Fatalf("unexpected job result %+v", snap)
	}

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/cases/%d", snap.CaseID), nil, "")
	expectStatus(t, rec, http.StatusOK)
	detail := decode[struct {
		Case    store.Case     `json:"case"`
		Summary *store.Summary `json:"summary"`
	}](t, rec)
	if detail.Case.Filename != "事例.txt" {
		t.Errorf("unexpected filename %q", detail.Case.Filename)
	}
	if detail.Summary == nil || !strings.HasPrefix(detail.Summary.Problem, "課題") {
		t.Errorf("expected auto summary, got %+v", detail.Summary)
	}

	// A second upload of the same content is skipped.
	body, ct = multipartBody(t, "file", []upload{{"copy.txt", caseStudy}}, nil)
	rec = ts.do(t, http.MethodPost, "/api/cases", body, ct)
	expectStatus(t, rec, http.StatusAccepted)
	dup := waitJob(t, ts, decode[map[string]any](t, rec)["job_id"].(string))
	if dup.Status != pipeline.StatusDupSkipped || dup.DuplicateOf != snap.CaseID {
		t.Errorf("expected duplicate of %d, got %+v", snap.CaseID, dup)
	}

	body, ct = multipartBody(t, "file", []upload{{"copy.txt", caseStudy}}, map[string]string{"force": "true"})
	rec = ts.do(t, http.MethodPost, "/api/cases", body, ct)
	expectStatus(t, rec, http.StatusAccepted)
	forced := waitJob(t, ts, decode[map[string]any](t, rec)["job_id"].(string))
	if forced.Status != pipeline.StatusCompleted {
		t.Errorf("expected forced upload to complete, got %+v", forced)
	}
}

func TestUpload_Rejections(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.MaxUploadBytes = 16 })

	tests := []struct {
		name  string
		field string
		files []upload
		want  int
	}{
		{"unsupported type", "file", []upload{{"photo.png", "png"}}, http.StatusBadRequest},
		{"missing file", "other", []upload{{"a.txt", "text"}}, http.StatusBadRequest},
		{"too large", "file", []upload{{"big.txt", strings.Repeat("x", 64)}}, http.StatusRequestEntityTooLarge},
		{"empty", "file", []upload{{"empty.txt", ""}}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.field, tc.files, nil)
			rec := ts.do(t, http.MethodPost, "/api/cases", body, ct)
			expectStatus(t, rec, tc.want)
			if decode[map[string]string](t, rec)["error"] == "" {
				t.Error("expected error message")
			}
		})
	}

	rec := ts.do(t, http.MethodPost, "/api/cases", strings.NewReader("plain"), "text/plain")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestBatchUpload(t *testing.T) {
	ts := newTestServer(t)
	body, ct := multipartBody(t, "files", []upload{
		{"a.txt", caseStudy},
		{"b.exe", "MZ"},
		{"c.md", "# Background\n\nThe warehouse shipped late every week.\n"},
	}, nil)
	rec := ts.do(t, http.MethodPost, "/api/cases/batch", body, ct)
	expectStatus(t, rec, http.StatusAccepted)

	resp := decode[struct {
		Jobs []map[string]any `json:"jobs"`
	}](t, rec)
	if len(resp.Jobs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Jobs))
	}
	if resp.Jobs[1]["error"] == nil || resp.Jobs[1]["filename"] != "b.exe" {
		t.Errorf("expected unsupported file rejected, got %v", resp.Jobs[1])
	}
	for _, i := range []int{0, 2} {
		id, _ := resp.Jobs[i]["job_id"].(string)
		if snap := waitJob(t, ts, id); snap.Status != pipeline.StatusCompleted {
			t.Errorf("job %d: expected completed, got %+v", i, snap)
		}
	}

	rec = ts.do(t, http.MethodGet, "/api/cases", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec)["total_count"]; got != float64(2) {
		t.Errorf("expected 2 cases, got %v", got)
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/jobs/missing", nil, ""), http.StatusNotFound)
}

func TestListCases_Search(t *testing.T) {
	ts := newTestServer(t)
	ts.seedCase(t, "logistics.pptx", "倉庫管理システムの刷新")
	ts.seedCase(t, "retail.pdf", "POS replacement for 40 stores")
	ts.seedCase(t, "bank.docx", "core banking migration")

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"bank.docx", "retail.pdf", "logistics.pptx"}},
		{"  ", []string{"bank.docx", "retail.pdf", "logistics.pptx"}},
		{"倉庫", []string{"logistics.pptx"}},
		{"RETAIL", []string{"retail.pdf"}},
		{"migration", []string{"bank.docx"}},
		{"nothing", nil},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/cases?q="+url.QueryEscape(tc.query), nil, "")
			expectStatus(t, rec, http.StatusOK)
			resp := decode[struct {
				Cases      []store.Case `json:"cases"`
				Keyword    string       `json:"keyword"`
				TotalCount int          `json:"total_count"`
			}](t, rec)
			if resp.TotalCount != 3 {
				t.Errorf("expected total 3, got %d", resp.TotalCount)
			}
			var got []string
			for _, c := range resp.Cases {
				got = append(got, c.Filename)
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
			if resp.Cases == nil {
				t.Error("expected empty list, not null")
			}
		})
	}
}

func TestGetCase(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedCase(t, "a.txt", caseStudy)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/cases/%d", id), nil, "")
	expectStatus(t, rec, http.StatusOK)
	body := decode[map[string]any](t, rec)
	if body["summary"] != nil {
		t.Errorf("expected null summary, got %v", body["summary"])
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/api/cases/999", nil, ""), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/cases/abc", nil, ""), http.StatusBadRequest)
}

func TestUpdateMetadata(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedCase(t, "a.txt", caseStudy)
	path := fmt.Sprintf("/api/cases/%d/metadata", id)

	rec := ts.doJSON(t, http.MethodPut, path, map[string]string{"customer_name": "  Acme ", "system_name": "WMS\n"})
	expectStatus(t, rec, http.StatusOK)

	c, err := ts.cases.GetCase(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if c.CustomerName != "Acme" || c.SystemName != "WMS" {
		t.Errorf("expected trimmed names, got %q / %q", c.CustomerName, c.SystemName)
	}

	expectStatus(t, ts.doJSON(t, http.MethodPut, "/api/cases/999/metadata", map[string]string{}), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodPut, path, strings.NewReader("{"), "application/json"), http.StatusBadRequest)
}

func TestSaveSummary(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedCase(t, "a.txt", caseStudy)
	path := fmt.Sprintf("/api/cases/%d/summary", id)

	rec := ts.doJSON(t, http.MethodPost, path, map[string]string{"problem": "p", "solution": " ", "outcome": "o"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.doJSON(t, http.MethodPost, path, map[string]string{"problem": " slow picking ", "solution": "handhelds", "outcome": "fewer errors"})
	expectStatus(t, rec, http.StatusCreated)
	sum := decode[store.Summary](t, rec)
	if sum.CaseID != id || sum.Problem != "slow picking" || sum.ID == 0 {
		t.Errorf("unexpected stored summary %+v", sum)
	}

	expectStatus(t, ts.doJSON(t, http.MethodPost, "/api/cases/999/summary",
		map[string]string{"problem": "p", "solution": "s", "outcome": "o"}), http.StatusNotFound)
}

func TestAutoSummary(t *testing.T) {
	ts := newTestServer(t)

	id := ts.seedCase(t, "a.txt", caseStudy)
	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/cases/%d/summary/auto", id), nil, "")
	expectStatus(t, rec, http.StatusCreated)
	sum := decode[store.Summary](t, rec)
	if !strings.HasPrefix(sum.Solution, "提案") || !strings.HasPrefix(sum.Outcome, "効果") {
		t.Errorf("unexpected auto summary %+v", sum)
	}

	blank := ts.seedCase(t, "blank.txt", " \n\t\n")
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/cases/%d/summary/auto", blank), nil, "")
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if msg := decode[map[string]string](t, rec)["error"]; msg != "could not summarize" {
		t.Errorf("unexpected error %q", msg)
	}
	if _, err := ts.cases.LatestSummary(context.Background(), blank); err == nil {
		t.Error("expected no summary stored for blank case")
	}
}

func TestReports(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedCase(t, "deck.pptx", caseStudy)
	base := fmt.Sprintf("/api/cases/%d", id)

	expectStatus(t, ts.do(t, http.MethodGet, base+"/report.pdf", nil, ""), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodPost, base+"/summary/auto", nil, ""), http.StatusCreated)

	tests := []struct {
		path        string
		contentType string
		magic       string
		ext         string
	}{
		{"/report.pdf", "application/pdf", "%PDF-", "pdf"},
		{"/report.docx", docxContentType, "PK", "docx"},
	}
	for _, tc := range tests {
		t.Run(tc.ext, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, base+tc.path, nil, "")
			expectStatus(t, rec, http.StatusOK)
			if got := rec.Header().Get("Content-Type"); got != tc.contentType {
				t.Errorf("expected content type %q, got %q", tc.contentType, got)
			}
			if !bytes.HasPrefix(rec.Body.Bytes(), []byte(tc.magic)) {
				t.Errorf("expected %q magic bytes", tc.magic)
			}
			_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
			if err != nil {
				t.Fatal(err)
			}
			want := fmt.Sprintf("case_summary_%d_%s.%s", id, time.Now().Format("20060102"), tc.ext)
			if params["filename"] != want {
				t.Errorf("expected filename %q, got %q", want, params["filename"])
			}
		})
	}
}

func TestDownloadFile(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedCase(t, "導入事例.pdf", "pdf bytes")

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/cases/%d/file", id), nil, "")
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "pdf bytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("unexpected content type %q", got)
	}
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil || params["filename"] != "導入事例.pdf" {
		t.Errorf("expected original filename, got %v (%v)", params, err)
	}
}

func TestDeleteCase(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seedCase(t, "a.txt", caseStudy)
	base := fmt.Sprintf("/api/cases/%d", id)
	expectStatus(t, ts.do(t, http.MethodPost, base+"/summary/auto", nil, ""), http.StatusCreated)

	rec := ts.do(t, http.MethodDelete, base, nil, "")
	expectStatus(t, rec, http.StatusOK)
	if decode[map[string]any](t, rec)["file_deleted"] != true {
		t.Errorf("expected file deleted, got %s", rec.Body.String())
	}

	expectStatus(t, ts.do(t, http.MethodGet, base, nil, ""), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodDelete, base, nil, ""), http.StatusNotFound)
	if _, err := ts.blobs.Get(context.Background(), "a.txt"); err == nil {
		t.Error("expected stored file removed")
	}
}

func TestParseStats(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/stats/parse", nil, "")
	expectStatus(t, rec, http.StatusOK)
	body := decode[map[string]any](t, rec)
	if _, ok := body["queue_depth"]; !ok {
		t.Errorf("expected queue_depth, got %v", body)
	}
	if _, ok := body["stats"]; !ok {
		t.Errorf("expected stats, got %v", body)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"deck.pptx", "deck.pptx"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\提案書.docx`, "提案書.docx"},
		{"a..b.pdf", "a_b.pdf"},
		{"", "unnamed"},
		{"dir/", "unnamed"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := sanitizeFilename(tc.in); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
