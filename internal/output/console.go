// Package output holds the downstream consumers of a run: a console
// printer and a Teams-style webhook sender. Both are collaborators outside
// the pipeline; their failures never affect the run's own accounting.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

// PrintSummary writes the discovered tools and the run counters to w.
func PrintSummary(w io.Writer, tools []domain.ToolInfo, sum domain.RunSummary) {
	fmt.Fprintln(w, "=== AI Tool Discovery Results ===")
	for i, t := range tools {
		printTool(w, t, i+1)
	}
	fmt.Fprintf(w, "\nTotal AI Tools Discovered: %d\n", len(tools))
	fmt.Fprintf(w, "\n=== Run Summary ===\n")
	fmt.Fprintf(w, "Searched URLs:        %d\n", sum.Searched)
	fmt.Fprintf(w, "Candidates:           %d\n", sum.Candidates)
	fmt.Fprintf(w, "Fetched OK:           %d\n", sum.FetchedOK)
	fmt.Fprintf(w, "Fetched failed:       %d\n", sum.FetchedFailed)
	fmt.Fprintf(w, "Skipped (filter):     %d\n", sum.SkippedByFilter)
	fmt.Fprintf(w, "Skipped (robots):     %d\n", sum.SkippedByRobots)
	fmt.Fprintf(w, "Skipped (blacklist):  %d\n", sum.SkippedBlacklisted)
	fmt.Fprintf(w, "Skipped (recent):     %d\n", sum.SkippedRecent)
	fmt.Fprintf(w, "Extraction failed:    %d\n", sum.ExtractionFailed)
	fmt.Fprintf(w, "Classified ai_tool:   %d\n", sum.ClassifiedTool)
	fmt.Fprintf(w, "Classified other:     %d\n", sum.ClassifiedNotTool)
	if len(sum.NewlyBlacklisted) > 0 {
		fmt.Fprintf(w, "\n=== Newly Blacklisted Domains ===\n")
		for _, dom := range sum.NewlyBlacklisted {
			fmt.Fprintf(w, "Blacklisted: %s\n", dom)
		}
	}
}

func printTool(w io.Writer, t domain.ToolInfo, idx int) {
	fmt.Fprintf(w, "\n%d. %s\n", idx, orNA(t.Title))
	if t.Website != t.SourceURL {
		fmt.Fprintf(w, "   Website: %s\n", orNA(t.Website))
	}
	fmt.Fprintf(w, "   Source: %s\n", orNA(t.SourceURL))
	fmt.Fprintf(w, "   Summary: %s\n", orNA(t.Summary))
	if len(t.Features) > 0 {
		limit := len(t.Features)
		if limit > 3 {
			limit = 3
		}
		fmt.Fprintf(w, "   Features: %s\n", strings.Join(t.Features[:limit], ", "))
	}
	if t.Pricing != "" {
		fmt.Fprintf(w, "   Pricing: %s\n", t.Pricing)
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
