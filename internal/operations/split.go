package operations

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// SplitResult holds the two documents cut from the original
type SplitResult struct {
	WrittenReport *Materialized
	Appendices    *Materialized
}

// SplitDocument copies the written report and appendices ranges of original
// into two independent documents. Both are built concurrently from the shared
// original, which is only read.
func SplitDocument(ctx context.Context, codec documents.Codec, original documents.Document, structure *models.Structure) (*SplitResult, error) {
	var result SplitResult
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := materialize(codec, models.ArtifactWrittenReport, segment{doc: original, pages: structure.WrittenReportRange})
		if err != nil {
			return err
		}
		result.WrittenReport = m
		return nil
	})

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := materialize(codec, models.ArtifactAppendices, segment{doc: original, pages: structure.AppendicesRange})
		if err != nil {
			return err
		}
		result.Appendices = m
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &result, nil
}
