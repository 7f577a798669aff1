// Package cli renders BrandGuard results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/brandguard/internal/indexer"
	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json"; anything else is an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

const (
	maxPathLen = 60
	maxNameLen = 40
)

var (
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	safeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResponse writes a verdict and its ranked matches to w.
func WriteSearchResponse(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, verdictLine(response))
	if len(response.Matches) > 0 {
		fmt.Fprintln(w)
		for _, m := range response.Matches {
			fmt.Fprintf(w, "  %2d. %6.2f%%  %s  %s\n", m.Rank, m.Percent, utils.Truncate(m.Name, maxNameLen), dimStyle.Render(utils.TruncateLeft(m.Path, maxPathLen)))
		}
	}
	for _, h := range response.BrandHints {
		fmt.Fprintf(w, "  hint: %s (%.0f%%)\n", h.Name, h.Confidence*100)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d matches, threshold %.0f%%, snapshot %s, %dms",
		len(response.Matches), response.Threshold, response.SnapshotVersion, response.QueryTime)))
	return nil
}

func verdictLine(response *models.SearchResponse) string {
	switch response.Verdict {
	case models.VerdictConflict:
		style := warningStyle
		if response.Severity == models.SeverityCritical {
			style = criticalStyle
		}
		name := ""
		if len(response.Matches) > 0 {
			name = response.Matches[0].Name
		}
		return style.Render(fmt.Sprintf("CONFLICT DETECTED [%s]", response.Severity)) +
			fmt.Sprintf(" %.2f%% similar to %s", response.TopPercent, name)
	case models.VerdictClean:
		return safeStyle.Render("CLEAN") +
			fmt.Sprintf(" low similarity (%.2f%%), this logo looks unique", response.TopPercent)
	default:
		return warningStyle.Render("NO DATA") + " the reference set is empty; add logos and reindex"
	}
}

// WriteStatus writes catalog status to w.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintln(w, titleStyle.Render("BrandGuard status"))
	if st.Ready {
		fmt.Fprintf(w, "  ready:       %s\n", safeStyle.Render("yes"))
		fmt.Fprintf(w, "  snapshot:    %s\n", st.SnapshotVersion)
		fmt.Fprintf(w, "  references:  %d (%d skipped)\n", st.References, st.Skipped)
		fmt.Fprintf(w, "  index:       %s, %d dimensions\n", st.IndexType, st.Dimensions)
		if st.BuiltAt != nil {
			fmt.Fprintf(w, "  built at:    %s\n", st.BuiltAt.Format(time.RFC3339))
		}
	} else {
		fmt.Fprintf(w, "  ready:       %s\n", criticalStyle.Render("no"))
	}
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "  disk usage:  %s\n", formatBytes(*st.DiskUsageBytes))
	}
	if c := st.Config; c != nil {
		fmt.Fprintf(w, "  logos dir:   %s\n", c.LogosDir)
		fmt.Fprintf(w, "  encoder:     %s\n", c.EncoderType)
		fmt.Fprintf(w, "  thresholds:  conflict > %.0f%%, critical > %.0f%%\n", c.ConflictThreshold, c.CriticalThreshold)
	}
	return nil
}

// WriteReport writes a rebuild report to w.
func WriteReport(w io.Writer, report *indexer.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Indexed %d logos from %s in %s (snapshot %s)\n",
		report.Indexed, report.Dir, report.Took.Round(time.Millisecond), report.Version)
	if report.Skipped > 0 {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("Skipped %d files:", report.Skipped)))
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s: %s\n", utils.TruncateLeft(f.Path, maxPathLen), f.Reason)
		}
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
