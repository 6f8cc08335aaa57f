package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/config"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/operations"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/storage"
	"github.com/Epistemic-Technology/esa-assembly-mcp/server"
)

var (
	runInput         string
	runExecSummary   int
	runAppendixStart int
	runOutDir        string
	runReasoning     string
)

var errQCFailed = errors.New("QC failed")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Split, recompile and check a report in one pass",
	Long: `Run every stage against a local PDF whose executive summary and first
appendix pages are known, writing the artifacts to the output directory.

Example:
  esa-assembly run --input site.pdf --exec-summary 4 --appendix-start 38 --out ./out`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(runInput)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		svc, store, err := server.NewService(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		return assemble(cmd.Context(), svc, assembleRequest{
			Intake: operations.IntakeRequest{RawData: data, Filename: filepath.Base(runInput)},
			Boundaries: operations.Boundaries{
				ExecSummaryPage:   runExecSummary,
				AppendixStartPage: runAppendixStart,
				Reasoning:         runReasoning,
			},
			OutDir: runOutDir,
		}, cmd.OutOrStdout())
	},
}

type assembleRequest struct {
	Intake     operations.IntakeRequest
	Boundaries operations.Boundaries
	OutDir     string
}

// assemble runs every stage for one document and writes the artifacts to
// req.OutDir. Artifacts are written even when QC fails.
func assemble(ctx context.Context, svc *operations.Service, req assembleRequest, out io.Writer) error {
	job, err := svc.CreateJob(ctx, req.Intake)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Job %s: %s, %d pages\n", job.JobID, job.Filename, job.PageCount)

	structure, err := svc.ResolveStructure(ctx, job.JobID, req.Boundaries)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Structure: written report %d-%d, appendices %d-%d, confidence %.2f\n",
		structure.WrittenReportRange.Start, structure.WrittenReportRange.End,
		structure.AppendicesRange.Start, structure.AppendicesRange.End, structure.Confidence)
	for _, w := range structure.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}

	if _, err := svc.Split(ctx, job.JobID); err != nil {
		return err
	}
	if _, err := svc.Merge(ctx, job.JobID); err != nil {
		return err
	}
	qc, err := svc.RunQC(ctx, job.JobID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(req.OutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	artifacts, err := svc.ListArtifacts(ctx, job.JobID)
	if err != nil {
		return err
	}
	for _, info := range artifacts {
		artifact, err := svc.GetArtifact(ctx, job.JobID, info.Name)
		if err != nil {
			return err
		}
		path := filepath.Join(req.OutDir, storage.ArtifactFilename(info.Name))
		if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "Wrote %s (%d pages)\n", path, info.PageCount)
	}

	if !qc.Report.QCPassed {
		for _, issue := range qc.Report.Issues {
			fmt.Fprintf(out, "Issue: %s\n", issue)
		}
		return errQCFailed
	}
	fmt.Fprintln(out, "QC passed")
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "PDF to assemble")
	runCmd.Flags().IntVar(&runExecSummary, "exec-summary", 0, "1-indexed page where the executive summary begins")
	runCmd.Flags().IntVar(&runAppendixStart, "appendix-start", 0, "1-indexed page where the first appendix begins")
	runCmd.Flags().StringVar(&runOutDir, "out", ".", "directory to write the artifacts to")
	runCmd.Flags().StringVar(&runReasoning, "reasoning", "", "note recorded with the structure")
	runCmd.MarkFlagRequired("input")
	runCmd.MarkFlagRequired("exec-summary")
	runCmd.MarkFlagRequired("appendix-start")
}
