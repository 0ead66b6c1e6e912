package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintFormulas displays the score definitions and the weight each severity receives.
func PrintFormulas(model *schema.FormulasRenderModel, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, model)
		}, "Wrote JSON")
	case schema.YAMLOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeYAML(w, model)
		}, "Wrote YAML")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return printFormulasCSV(w, model, cfg.Precision)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return printFormulasText(w, model, cfg.Precision)
		}, "Wrote text")
	}
}

// printFormulasCSV emits one row per severity with both weights.
func printFormulasCSV(w io.Writer, model *schema.FormulasRenderModel, precision int) error {
	fmtFloat := createFormatter(precision)
	header := []string{"severity", "overall_weight", "degradation_weight"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, sw := range model.Weights {
			row := []string{fmt.Sprint(sw.Severity), fmtFloat(sw.Overall), fmtFloat(sw.Degradation)}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// printFormulasText displays the formulas in human-readable text format.
func printFormulasText(w io.Writer, model *schema.FormulasRenderModel, precision int) error {
	fmtFloat := createFormatter(precision)

	if _, err := fmt.Fprintf(w, "📐 %s\n", model.Title); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "========================\n\n%s\n\n", model.Description); err != nil {
		return err
	}
	for _, s := range model.Scores {
		if _, err := fmt.Fprintf(w, "%s: %s\n", s.Name, s.Purpose); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "   Formula: %s\n", s.Formula); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "   Decay rate: %s\n\n", fmtFloat(s.DecayRate)); err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Severity", "Overall Weight", "Degradation Weight"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, sw := range model.Weights {
		data = append(data, []string{fmt.Sprint(sw.Severity), fmtFloat(sw.Overall), fmtFloat(sw.Degradation)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(model.Metrics) > 0 {
		if _, err := fmt.Fprintf(w, "\nMetrics: %s\n", model.Metrics.String()); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(model.Notes))
	for k := range model.Notes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "\n%s: %s", k, model.Notes[k]); err != nil {
			return err
		}
	}
	if len(keys) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
