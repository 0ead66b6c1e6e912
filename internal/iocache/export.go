package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/internal/parquet"
)

// ExportAnalysis writes the run history to <outputFile>.runs.parquet and
// <outputFile>.scores.parquet, reporting progress to w.
func ExportAnalysis(store contract.AnalysisStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("analysis tracking is not enabled")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get analysis status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no analysis data found to export")
	}
	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	scores, err := store.GetAllScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve scores: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRuns(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	scoresFile := outputFile + ".scores.parquet"
	if err := parquet.WriteScoreValues(parquet.ConvertScoreRecords(scores), scoresFile); err != nil {
		return fmt.Errorf("failed to write scores: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d score values to: %s\n", len(scores), scoresFile)
	return nil
}
