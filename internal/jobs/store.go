package jobs

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// SplitArtifacts holds the written-report and appendices documents produced by a split
type SplitArtifacts struct {
	WrittenReport      documents.Document
	Appendices         documents.Document
	WrittenReportPages int
	AppendicesPages    int
}

// MergeArtifact holds the document rebuilt from front matter and the split artifacts
type MergeArtifact struct {
	Recompiled       documents.Document
	PageCount        int
	FrontMatterPages int
}

// Job tracks one document through the pipeline
type Job struct {
	ID        string
	Filename  string
	SizeBytes int64
	PageCount int
	Source    models.SourceInfo
	CreatedAt time.Time
	Stage     Stage

	// Original is shared read-only by every stage
	Original documents.Document

	Structure *models.Structure
	Split     *SplitArtifacts
	Merge     *MergeArtifact
	QC        *models.QCReport
}

var preconditionMessages = map[Stage]string{
	StageStructureResolved: "must resolve structure first",
	StageSplit:             "must split first",
	StageMerged:            "must merge first",
}

// Require returns a PreconditionError unless the job has reached stage
func (j *Job) Require(stage Stage) error {
	if j.Stage.Reached(stage) {
		return nil
	}
	msg, ok := preconditionMessages[stage]
	if !ok {
		msg = fmt.Sprintf("job must reach stage %s first", stage)
	}
	return NewPreconditionError(msg)
}

// Advance moves the job to stage and drops every artifact produced after it.
func (j *Job) Advance(stage Stage) {
	j.Stage = stage
	if stage < StageQCed {
		j.QC = nil
	}
	if stage < StageMerged {
		j.Merge = nil
	}
	if stage < StageSplit {
		j.Split = nil
	}
	if stage < StageStructureResolved {
		j.Structure = nil
	}
}

// Info returns a summary of the job suitable for tool responses
func (j *Job) Info() models.JobInfo {
	return models.JobInfo{
		JobID:      j.ID,
		Filename:   j.Filename,
		PageCount:  j.PageCount,
		SizeBytes:  j.SizeBytes,
		Stage:      j.Stage.String(),
		SourceInfo: j.Source,
		CreatedAt:  j.CreatedAt,
	}
}

// clone copies the job so that a stage function can modify it without
// touching the committed state. Documents are immutable and are not copied.
func (j Job) clone() Job {
	if j.Structure != nil {
		s := *j.Structure
		s.Warnings = slices.Clone(s.Warnings)
		s.ReasoningPoints = slices.Clone(s.ReasoningPoints)
		j.Structure = &s
	}
	if j.Split != nil {
		s := *j.Split
		j.Split = &s
	}
	if j.Merge != nil {
		m := *j.Merge
		j.Merge = &m
	}
	if j.QC != nil {
		q := *j.QC
		q.BlankPages = slices.Clone(q.BlankPages)
		q.Issues = slices.Clone(q.Issues)
		j.QC = &q
	}
	return j
}

type entry struct {
	mu  sync.Mutex
	job Job
}

// Store holds jobs in memory keyed by id. Each job has its own lock so that
// stages of one job never interleave while different jobs run concurrently.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Create registers a new job at StageCreated. A job id is generated when the
// job does not carry one.
func (s *Store) Create(job Job) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.Stage = StageCreated

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[job.ID]; exists {
		return Job{}, fmt.Errorf("job %s already exists", job.ID)
	}
	s.entries[job.ID] = &entry{job: job}
	return job.clone(), nil
}

// Get returns a snapshot of the job
func (s *Store) Get(id string) (Job, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Job{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.clone(), nil
}

// Update runs fn on a copy of the job while holding the job's lock. The copy
// replaces the stored job only when fn returns nil.
func (s *Store) Update(id string, fn func(*Job) error) (Job, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Job{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.job.clone()
	if err := fn(&working); err != nil {
		return Job{}, err
	}
	e.job = working
	return working.clone(), nil
}

// List returns snapshots of every job, in no particular order
func (s *Store) List() []Job {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	jobs := make([]Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		jobs = append(jobs, e.job.clone())
		e.mu.Unlock()
	}
	return jobs
}

// Delete removes a job
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return NewNotFoundError("job not found")
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, NewNotFoundError("job not found")
	}
	return e, nil
}
