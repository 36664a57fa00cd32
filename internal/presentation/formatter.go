package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// maxOriginWidth caps the origin column; long URLs and paths are truncated.
const maxOriginWidth = 48

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	builtStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#10B981"})
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"})
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
	plainStyle   = lipgloss.NewStyle()
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatJSON writes v as indented JSON
func (f *Formatter) FormatJSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatStatus renders one row per crate
func (f *Formatter) FormatStatus(mode string, crates []CrateStatusDTO) error {
	if _, err := fmt.Fprintf(f.writer, "%s %s\n\n", headerStyle.Render("mode:"), mode); err != nil {
		return err
	}
	if len(crates) == 0 {
		_, err := fmt.Fprintln(f.writer, mutedStyle.Render("no crates configured"))
		return err
	}

	t := newTable("CRATE", "SOURCE", "ORIGIN", "STATE", "LAST BUILD")
	for _, c := range crates {
		state, style := "missing", mutedStyle
		switch {
		case c.Built && c.Changed:
			state, style = "changed", changedStyle
		case c.Built:
			state, style = "built", builtStyle
		case c.LastBuild != nil && c.LastBuild.Outcome == "failed":
			state, style = "failed", failedStyle
		}

		last := "-"
		if c.LastBuild != nil {
			last = fmt.Sprintf("%s (%s)", c.LastBuild.StartedAt.Local().Format(time.DateTime), c.LastBuild.Outcome)
		}

		t.add(
			cell{c.Name, plainStyle},
			cell{c.Source, plainStyle},
			cell{truncate(c.Origin), mutedStyle},
			cell{state, style},
			cell{last, mutedStyle},
		)
	}
	return t.write(f.writer)
}

// FormatHistory renders recorded builds, newest first
func (f *Formatter) FormatHistory(builds []BuildDTO) error {
	if len(builds) == 0 {
		_, err := fmt.Fprintln(f.writer, mutedStyle.Render("no recorded builds"))
		return err
	}

	t := newTable("STARTED", "CRATE", "MODE", "SOURCE", "OUTCOME", "DURATION", "REVISION")
	for _, b := range builds {
		outcome := cell{b.Outcome, builtStyle}
		if b.Outcome == "failed" {
			outcome.style = failedStyle
		}
		revision := "-"
		if b.Revision != "" {
			revision = shortRevision(b.Revision)
		}
		t.add(
			cell{b.StartedAt.Local().Format(time.DateTime), mutedStyle},
			cell{b.Crate, plainStyle},
			cell{b.Mode, plainStyle},
			cell{b.Source, plainStyle},
			outcome,
			cell{(time.Duration(b.DurationMS) * time.Millisecond).String(), plainStyle},
			cell{revision, mutedStyle},
		)
	}
	if err := t.write(f.writer); err != nil {
		return err
	}

	// Errors go below the table, they are too long for a column.
	for _, b := range builds {
		if b.Error == "" {
			continue
		}
		if _, err := fmt.Fprintf(f.writer, "\n%s %s\n  %s\n",
			failedStyle.Render("✗"), b.Crate, mutedStyle.Render(b.Error)); err != nil {
			return err
		}
	}
	return nil
}

type cell struct {
	text  string
	style lipgloss.Style
}

// table lays out cells in padded columns. Widths are measured on the
// unstyled text so ANSI sequences do not skew alignment.
type table struct {
	headers []string
	rows    [][]cell
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) add(cells ...cell) {
	t.rows = append(t.rows, cells)
}

func (t *table) write(w io.Writer) error {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c.text))
		}
	}

	var b strings.Builder
	for i, h := range t.headers {
		b.WriteString(headerStyle.Render(pad(h, widths[i], i == len(t.headers)-1)))
	}
	b.WriteString("\n")
	for _, row := range t.rows {
		for i, c := range row {
			b.WriteString(c.style.Render(pad(c.text, widths[i], i == len(row)-1)))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// pad right-fills s to width plus a two-space gutter. The last column is not
// padded so lines carry no trailing spaces.
func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	return runewidth.FillRight(s, width) + "  "
}

func truncate(s string) string {
	return runewidth.Truncate(s, maxOriginWidth, "…")
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
