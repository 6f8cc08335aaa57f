package operations

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/jobs"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/storage"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// Options are the tunable constants of the pipeline
type Options struct {
	Confidence ConfidencePolicy
	QC         QCOptions
}

func DefaultOptions() Options {
	return Options{
		Confidence: DefaultConfidencePolicy(),
		QC:         DefaultQCOptions(),
	}
}

// Artifacts produced by each stage, in pipeline order
var stageArtifacts = []struct {
	stage jobs.Stage
	names []string
}{
	{jobs.StageSplit, []string{models.ArtifactWrittenReport, models.ArtifactAppendices}},
	{jobs.StageMerged, []string{models.ArtifactRecompiled}},
	{jobs.StageQCed, []string{models.ArtifactQCSummary}},
}

// staleArtifacts names the artifacts a job at stage current holds that were
// produced after stage target.
func staleArtifacts(current, target jobs.Stage) []string {
	var names []string
	for _, sa := range stageArtifacts {
		if sa.stage > target && current.Reached(sa.stage) {
			names = append(names, sa.names...)
		}
	}
	return names
}

func artifactOrder(name string) int {
	if name == models.ArtifactOriginal {
		return 0
	}
	order := 1
	for _, sa := range stageArtifacts {
		for _, n := range sa.names {
			if n == name {
				return order
			}
			order++
		}
	}
	return order
}

// IntakeRequest names the document to create a job for. Exactly one of
// RawData, Source.URL and Source.ZoteroID must be set.
type IntakeRequest struct {
	RawData  []byte
	Source   models.SourceInfo
	Filename string
}

// SplitOutcome describes the two split artifacts
type SplitOutcome struct {
	WrittenReport models.ArtifactInfo
	Appendices    models.ArtifactInfo
	Structure     models.Structure
}

// MergeOutcome describes the recompiled artifact and its parts
type MergeOutcome struct {
	Recompiled         models.ArtifactInfo
	FrontMatterPages   int
	WrittenReportPages int
	AppendicesPages    int
}

// QCOutcome is the QC report and its stored summary
type QCOutcome struct {
	Report  models.QCReport
	Summary models.ArtifactInfo
}

// Service runs the pipeline stages against the job store. Each stage runs
// under the job's lock and commits its artifacts before the job advances.
type Service struct {
	jobs      *jobs.Store
	codec     documents.Codec
	artifacts storage.Store
	fetcher   *documents.Fetcher
	log       logger.Logger

	mu   sync.RWMutex
	opts Options

	now func() time.Time
}

func NewService(store *jobs.Store, codec documents.Codec, artifacts storage.Store, fetcher *documents.Fetcher, log logger.Logger, opts Options) *Service {
	return &Service{
		jobs:      store,
		codec:     codec,
		artifacts: artifacts,
		fetcher:   fetcher,
		log:       log.Named("operations"),
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetOptions replaces the pipeline constants for subsequent stages
func (s *Service) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

func (s *Service) options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// CreateJob loads a document and registers a job for it. No job is created
// when the document cannot be fetched, opened or stored.
func (s *Service) CreateJob(ctx context.Context, req IntakeRequest) (models.JobInfo, error) {
	sources := 0
	for _, set := range []bool{req.RawData != nil, req.Source.URL != "", req.Source.ZoteroID != ""} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return models.JobInfo{}, jobs.NewValidationError("one of raw_data, url or zotero_id is required")
	case sources > 1:
		return models.JobInfo{}, jobs.NewValidationError("only one of raw_data, url or zotero_id may be provided")
	}

	data := req.RawData
	filename := req.Filename
	if data == nil {
		if s.fetcher == nil {
			return models.JobInfo{}, jobs.NewIOError("remote sources are not configured", nil)
		}
		fetched, fetchedName, err := s.fetcher.GetData(ctx, req.Source)
		if err != nil {
			return models.JobInfo{}, jobs.NewIOError("failed to fetch document", err)
		}
		data = fetched
		if filename == "" {
			filename = fetchedName
		}
	}
	if filename == "" {
		filename = "document.pdf"
	}

	doc, err := s.codec.Open(data)
	if err != nil {
		return models.JobInfo{}, jobs.NewIOError("unreadable document", err)
	}

	job, err := s.jobs.Create(jobs.Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		SizeBytes: int64(len(data)),
		PageCount: doc.PageCount(),
		Source:    req.Source,
		CreatedAt: s.now(),
		Original:  doc,
	})
	if err != nil {
		return models.JobInfo{}, err
	}

	err = s.artifacts.StoreArtifact(ctx, &storage.Artifact{
		JobID:     job.ID,
		Name:      models.ArtifactOriginal,
		MIMEType:  models.MIMETypePDF,
		PageCount: doc.PageCount(),
		Data:      data,
	})
	if err != nil {
		if delErr := s.jobs.Delete(job.ID); delErr != nil {
			s.log.Warn("Failed to remove job %s after storing its original failed: %v", job.ID, delErr)
		}
		return models.JobInfo{}, jobs.NewIOError("failed to store original document", err)
	}

	s.log.Info("Created job %s for %s (%d pages, source %s)", job.ID, filename, job.PageCount, req.Source.Kind())
	return job.Info(), nil
}

// Job returns a summary of a job
func (s *Service) Job(jobID string) (models.JobInfo, error) {
	job, err := s.jobs.Get(jobID)
	if err != nil {
		return models.JobInfo{}, err
	}
	return job.Info(), nil
}

// ListJobs returns every job, oldest first
func (s *Service) ListJobs() []models.JobInfo {
	all := s.jobs.List()
	infos := make([]models.JobInfo, 0, len(all))
	for i := range all {
		infos = append(infos, all[i].Info())
	}
	slices.SortFunc(infos, func(a, b models.JobInfo) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return infos
}

// ReadPages returns the text of the requested pages of the original document
func (s *Service) ReadPages(jobID string, pageNumbers []int) ([]models.PageText, error) {
	job, err := s.jobs.Get(jobID)
	if err != nil {
		return nil, err
	}
	return ReadPages(job.Original, pageNumbers), nil
}

// ResolveStructure validates the boundaries and replaces the job's structure.
// Artifacts produced from a previous structure are removed.
func (s *Service) ResolveStructure(ctx context.Context, jobID string, b Boundaries) (*models.Structure, error) {
	opts := s.options()
	job, err := s.jobs.Update(jobID, func(j *jobs.Job) error {
		structure, err := ResolveStructure(b, j.PageCount, opts.Confidence)
		if err != nil {
			return err
		}
		if err := s.commit(ctx, j, nil, jobs.StageStructureResolved); err != nil {
			return err
		}
		j.Structure = structure
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Resolved structure for job %s: written %d-%d, appendices %d-%d, confidence %.2f",
		jobID, job.Structure.WrittenReportRange.Start, job.Structure.WrittenReportRange.End,
		job.Structure.AppendicesRange.Start, job.Structure.AppendicesRange.End, job.Structure.Confidence)
	return job.Structure, nil
}

// Split materializes the written report and appendices artifacts
func (s *Service) Split(ctx context.Context, jobID string) (*SplitOutcome, error) {
	var outcome SplitOutcome
	_, err := s.jobs.Update(jobID, func(j *jobs.Job) error {
		if err := j.Require(jobs.StageStructureResolved); err != nil {
			return err
		}

		result, err := SplitDocument(ctx, s.codec, j.Original, j.Structure)
		if err != nil {
			return err
		}

		written := s.pdfArtifact(j.ID, models.ArtifactWrittenReport, result.WrittenReport)
		appendices := s.pdfArtifact(j.ID, models.ArtifactAppendices, result.Appendices)
		if err := s.commit(ctx, j, []*storage.Artifact{written, appendices}, jobs.StageSplit); err != nil {
			return err
		}

		j.Split = &jobs.SplitArtifacts{
			WrittenReport:      result.WrittenReport.Document,
			Appendices:         result.Appendices.Document,
			WrittenReportPages: result.WrittenReport.PageCount,
			AppendicesPages:    result.Appendices.PageCount,
		}
		outcome = SplitOutcome{
			WrittenReport: written.Info(),
			Appendices:    appendices.Info(),
			Structure:     *j.Structure,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Split job %s into %d written report pages and %d appendix pages",
		jobID, outcome.WrittenReport.PageCount, outcome.Appendices.PageCount)
	return &outcome, nil
}

// Merge rebuilds the full document from the original front matter and the
// split artifacts
func (s *Service) Merge(ctx context.Context, jobID string) (*MergeOutcome, error) {
	var outcome MergeOutcome
	_, err := s.jobs.Update(jobID, func(j *jobs.Job) error {
		if err := j.Require(jobs.StageSplit); err != nil {
			return err
		}

		result, err := MergeDocuments(s.codec, j.Original, j.Structure, j.Split.WrittenReport, j.Split.Appendices)
		if err != nil {
			return err
		}

		recompiled := s.pdfArtifact(j.ID, models.ArtifactRecompiled, result.Recompiled)
		if err := s.commit(ctx, j, []*storage.Artifact{recompiled}, jobs.StageMerged); err != nil {
			return err
		}

		j.Merge = &jobs.MergeArtifact{
			Recompiled:       result.Recompiled.Document,
			PageCount:        result.Recompiled.PageCount,
			FrontMatterPages: result.FrontMatterPages,
		}
		outcome = MergeOutcome{
			Recompiled:         recompiled.Info(),
			FrontMatterPages:   result.FrontMatterPages,
			WrittenReportPages: result.WrittenReportPages,
			AppendicesPages:    result.AppendicesPages,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Merged job %s into %d pages", jobID, outcome.Recompiled.PageCount)
	return &outcome, nil
}

// RunQC verifies the recompiled document and stores the QC summary
func (s *Service) RunQC(ctx context.Context, jobID string) (*QCOutcome, error) {
	opts := s.options()
	var outcome QCOutcome
	_, err := s.jobs.Update(jobID, func(j *jobs.Job) error {
		if err := j.Require(jobs.StageMerged); err != nil {
			return err
		}

		report := VerifyRecompiled(j.PageCount, j.Merge.Recompiled, opts.QC, s.now())
		data, pageCount, err := documents.RenderTextPDF(RenderQCSummary(j.ID, report))
		if err != nil {
			return jobs.NewIOError("failed to render QC summary", err)
		}
		summary := &storage.Artifact{
			JobID:     j.ID,
			Name:      models.ArtifactQCSummary,
			MIMEType:  models.MIMETypePDF,
			PageCount: pageCount,
			Data:      data,
		}
		if err := s.commit(ctx, j, []*storage.Artifact{summary}, jobs.StageQCed); err != nil {
			return err
		}

		j.QC = report
		outcome = QCOutcome{Report: *report, Summary: summary.Info()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Report.QCPassed {
		s.log.Info("QC passed for job %s", jobID)
	} else {
		s.log.Warn("QC failed for job %s: %v", jobID, outcome.Report.Issues)
	}
	return &outcome, nil
}

// ListArtifacts lists the output artifacts of a job in pipeline order. The
// original document is not listed.
func (s *Service) ListArtifacts(ctx context.Context, jobID string) ([]models.ArtifactInfo, error) {
	if _, err := s.jobs.Get(jobID); err != nil {
		return nil, err
	}

	infos, err := s.artifacts.ListArtifacts(ctx, jobID)
	if err != nil {
		return nil, jobs.NewIOError("failed to list artifacts", err)
	}

	outputs := make([]models.ArtifactInfo, 0, len(infos))
	for _, info := range infos {
		if info.Name != models.ArtifactOriginal {
			outputs = append(outputs, info)
		}
	}
	slices.SortStableFunc(outputs, func(a, b models.ArtifactInfo) int {
		return artifactOrder(a.Name) - artifactOrder(b.Name)
	})
	return outputs, nil
}

// GetArtifact returns a stored artifact, including the original document
func (s *Service) GetArtifact(ctx context.Context, jobID, name string) (*storage.Artifact, error) {
	if _, err := s.jobs.Get(jobID); err != nil {
		return nil, err
	}

	artifact, err := s.artifacts.GetArtifact(ctx, jobID, name)
	if errors.Is(err, storage.ErrArtifactNotFound) {
		return nil, jobs.NewNotFoundError(fmt.Sprintf("artifact %s not found", name))
	}
	if err != nil {
		return nil, jobs.NewIOError("failed to read artifact", err)
	}
	return artifact, nil
}

func (s *Service) pdfArtifact(jobID, name string, m *Materialized) *storage.Artifact {
	return &storage.Artifact{
		JobID:     jobID,
		Name:      name,
		MIMEType:  models.MIMETypePDF,
		PageCount: m.PageCount,
		Data:      m.Data,
	}
}

// commit stores the artifacts of stage, removes those of later stages and
// advances the job
func (s *Service) commit(ctx context.Context, j *jobs.Job, put []*storage.Artifact, stage jobs.Stage) error {
	stale := staleArtifacts(j.Stage, stage)
	if err := s.artifacts.CommitArtifacts(ctx, j.ID, put, stale); err != nil {
		return jobs.NewIOError(fmt.Sprintf("failed to store %s artifacts", stage), err)
	}
	if len(stale) > 0 {
		s.log.Debug("Invalidated artifacts %v of job %s", stale, j.ID)
	}
	j.Advance(stage)
	return nil
}
