package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusStoring     JobStatus = "storing"
	StatusSummarizing JobStatus = "summarizing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusPartial     JobStatus = "partial"
	StatusDupSkipped  JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions follow.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks one uploaded file on its way to becoming a case.
type Job struct {
	mu sync.Mutex

	ID       string
	Filename string
	Force    bool

	Status   JobStatus
	Phase    string
	Progress Progress

	CaseID      int64
	DuplicateOf int64
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	fileData []byte
}

// Progress tracks what the worker has done so far.
type Progress struct {
	TextChars  int      `json:"text_chars"`
	Pages      int      `json:"pages"`
	Summarized bool     `json:"summarized"`
	Notes      []string `json:"notes"`
	Errors     []string `json:"errors"`
}

// NewJob returns a queued job holding the uploaded bytes.
func NewJob(filename string, data []byte, force bool) *Job {
	now := time.Now()
	return &Job{
		ID:        generateULID(),
		Filename:  filename,
		Force:     force,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs not updated within the TTL. Jobs still in
// flight are kept regardless of age.
func (s *JobStore) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, err)
	j.UpdatedAt = time.Now()
}

// AddNote records a non-fatal remark, such as an empty summary.
func (j *Job) AddNote(note string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Notes = append(j.Progress.Notes, note)
	j.UpdatedAt = time.Now()
}

// SetText records the content hash and size of the extracted text.
func (j *Job) SetText(hash string, chars, pages int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.Progress.TextChars = chars
	j.Progress.Pages = pages
	j.UpdatedAt = time.Now()
}

// SetCase records the ID of the stored case and drops the upload bytes.
func (j *Job) SetCase(id int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.CaseID = id
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// SetDuplicate marks the job as a duplicate of an existing case.
func (j *Job) SetDuplicate(existing int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DuplicateOf = existing
	j.fileData = nil
	j.Status = StatusDupSkipped
	j.Phase = "dedup"
	j.UpdatedAt = time.Now()
}

// SetSummarized marks that a summary was stored for the case.
func (j *Job) SetSummarized() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Summarized = true
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Force       bool      `json:"force"`
	CaseID      int64     `json:"case_id,omitempty"`
	DuplicateOf int64     `json:"duplicate_of,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Force:       j.Force,
		CaseID:      j.CaseID,
		DuplicateOf: j.DuplicateOf,
		ContentHash: j.ContentHash,
		Progress: Progress{
			TextChars:  j.Progress.TextChars,
			Summarized: j.Progress.Summarized,
			Notes:      nonNil(j.Progress.Notes),
			Errors:     nonNil(j.Progress.Errors),
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
