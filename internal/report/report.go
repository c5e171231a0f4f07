// Package report formats geometry, blurb and job summaries for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/jobs"
	"github.com/thereceipt/cover-engine/internal/layout"
)

var (
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#06B6D4") // Cyan
	Success   = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray

	colorTextBright = lipgloss.Color("#F8FAFC")
	colorTextMuted  = lipgloss.Color("#64748B")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorTextBright).
			Background(Primary).
			Padding(0, 2)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Padding(0, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Foreground(colorTextBright)

	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)

	StatusDone    = lipgloss.NewStyle().Foreground(Success).SetString("●")
	StatusFailed  = lipgloss.NewStyle().Foreground(Error).SetString("●")
	StatusPending = lipgloss.NewStyle().Foreground(Warning).SetString("●")
)

type row struct {
	label, value string
}

func card(title string, rows []row) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(r.label), ValueStyle.Render(r.value)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, HeaderStyle.Render(title), CardStyle.Render(strings.Join(lines, "\n")))
}

// Geometry summarises a computed layout.
func Geometry(g geometry.Geometry) string {
	w, h := g.CanvasSize()
	return card("Cover geometry", []row{
		{"Resolution", fmt.Sprintf("%g ppi", g.PPI)},
		{"Trim", fmt.Sprintf("%g x %g in", g.TrimWidthIn, g.TrimHeightIn)},
		{"Spine", fmt.Sprintf("%.3f mm (%.4f in)", g.SpineWidthMM, g.SpineWidthInches())},
		{"Bleed", fmt.Sprintf("%.1f px", g.Bleed)},
		{"Canvas", fmt.Sprintf("%d x %d px", w, h)},
		{"Canvas (in)", fmt.Sprintf("%.4f x %.4f", g.CanvasWidth/g.PPI, g.CanvasHeight/g.PPI)},
	})
}

// Blurb summarises a solved blurb box against its constraints.
func Blurb(b layout.Box, ok bool, c layout.BarcodeConstraints) string {
	verdict := SuccessStyle.Render("clear of barcode")
	if !ok {
		verdict = ErrorStyle.Render("no safe placement")
	}
	return card("Blurb box", []row{
		{"Height", fmt.Sprintf("%g%%", b.HeightPercent)},
		{"Y offset", fmt.Sprintf("%g%%", b.YOffsetPercent)},
		{"Bottom edge", fmt.Sprintf("%.2f%%", b.BottomPercent())},
		{"Safe limit", fmt.Sprintf("%.2f%%", c.MaxSafeVerticalPercent)},
		{"Result", verdict},
	})
}

// StatusIcon returns a coloured dot for a job status.
func StatusIcon(s jobs.Status) string {
	switch s {
	case jobs.StatusCompleted:
		return StatusDone.String()
	case jobs.StatusFailed:
		return StatusFailed.String()
	default:
		return StatusPending.String()
	}
}

// Job summarises one export job.
func Job(j *jobs.Job) string {
	rows := []row{
		{"ID", j.ID},
		{"Title", Truncate(j.Title, 40)},
		{"Status", StatusIcon(j.Status) + " " + string(j.Status)},
		{"Output", fmt.Sprintf("%s @ %g dpi", j.Format, j.DPI)},
	}
	if j.Retries > 0 {
		rows = append(rows, row{"Retries", fmt.Sprint(j.Retries)})
	}
	if j.Filename != "" {
		rows = append(rows, row{"File", fmt.Sprintf("%s (%d bytes)", j.Filename, j.Size)})
	}
	if j.Error != "" {
		rows = append(rows, row{"Error", ErrorStyle.Render(j.Error)})
	}
	return card("Export job", rows)
}

// Jobs lists export jobs one per line.
func Jobs(list []*jobs.Job) string {
	if len(list) == 0 {
		return WarningStyle.Render("No export jobs")
	}
	lines := make([]string, 0, len(list))
	for _, j := range list {
		lines = append(lines, fmt.Sprintf("%s %-9s %s  %s", StatusIcon(j.Status), j.Status, j.ID, Truncate(j.Title, 32)))
	}
	return strings.Join(lines, "\n")
}

// Truncate shortens s to max bytes, ending with "..." when cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
