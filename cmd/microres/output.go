package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/miradorstack/microres/internal/api"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func checkOutput(format string) error {
	switch format {
	case outputText, outputJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (text/json)", format)
	}
}

func printEvaluation(w io.Writer, format string, doc api.EvaluationDocument) error {
	if format == outputJSON {
		return writeJSON(w, doc)
	}
	fmt.Fprintf(w, "test:              %s\n", doc.TestID)
	fmt.Fprintf(w, "evaluation:        %s\n", doc.ID)
	fmt.Fprintf(w, "strategy:          %s\n", doc.Strategy)
	fmt.Fprintf(w, "resilience index:  %.6f\n", doc.ResilienceIndex)
	fmt.Fprintf(w, "performance score: %.6f\n", doc.PerformanceScore)
	fmt.Fprintf(w, "business score:    %.6f\n\n", doc.BusinessScore)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tMETRIC\tSCORE")
	for i, rec := range doc.Ranking {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, rec.Metric, formatScore(rec.Score))
	}
	return tw.Flush()
}

func printHistory(w io.Writer, format string, docs []api.EvaluationDocument) error {
	if format == outputJSON {
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "no evaluations found")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTEST\tSTRATEGY\tINDEX\tTOP METRIC\tID")
	for _, d := range docs {
		top := "-"
		if len(d.Ranking) > 0 {
			top = d.Ranking[0].Metric
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.6f\t%s\t%s\n",
			d.CreatedAt.Format(time.RFC3339), d.TestID, d.Strategy, d.ResilienceIndex, top, d.ID)
	}
	return tw.Flush()
}

func formatScore(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.6f", v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
