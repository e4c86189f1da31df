// Package tui renders run progress and results on the terminal.
// Plain streaming output; no full-screen interface.
package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/daysim/daysim/pkg/config"
	"github.com/daysim/daysim/pkg/scheduler"
)

// Colors
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

const rule = "  ─────────────────────────────────────"

// PrintHeader prints the banner.
func PrintHeader(w io.Writer, version string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("  DAYSIM")+mutedStyle.Render(" "+version))
	fmt.Fprintln(w, mutedStyle.Render("  Household activity and travel simulator"))
	fmt.Fprintln(w)
}

// PrintPlan prints what a run is about to do.
func PrintPlan(w io.Writer, cfg *config.Config, households int) {
	fmt.Fprintln(w, accentStyle.Render("▸ RUN"))
	fmt.Fprintln(w, mutedStyle.Render(rule))
	field(w, "Households:", formatNumber(int64(households)))
	field(w, "Days:", fmt.Sprintf("%d", cfg.Simulation.Days))
	field(w, "Workers:", fmt.Sprintf("%d", scheduler.Workers(cfg.Scheduler.Workers)))
	if cfg.Scheduler.SamplingOneInX > 1 {
		field(w, "Sampling:", fmt.Sprintf("1 in %d from %d", cfg.Scheduler.SamplingOneInX, cfg.Scheduler.SamplingStartWith))
	}
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Output:"), codeStyle.Render(cfg.Output.Dir+" ("+cfg.Output.Format+")"))
	fmt.Fprintln(w, mutedStyle.Render(rule))
	fmt.Fprintln(w)
}

// PrintSummary prints results after a run.
func PrintSummary(w io.Writer, s *scheduler.Summary, rows map[string]int64, files []string) {
	fmt.Fprintln(w)
	if len(s.Faults) == 0 {
		fmt.Fprintln(w, successStyle.Render("  ✓ SIMULATION COMPLETE"))
	} else {
		fmt.Fprintln(w, accentStyle.Render(fmt.Sprintf("  ✗ SIMULATION COMPLETE WITH %d FAULTED HOUSEHOLDS", len(s.Faults))))
	}
	fmt.Fprintln(w)

	c := s.Counters
	field(w, "Households:", fmt.Sprintf("%s simulated, %s exported, %s resumed",
		formatNumber(int64(s.Simulated)), formatNumber(int64(s.Exported)), formatNumber(int64(s.Resumed))))
	field(w, "Days:", fmt.Sprintf("%s valid, %s abandoned", formatNumber(c.ValidDays), formatNumber(c.AbandonedDays)))
	field(w, "Tours:", formatNumber(c.Tours))
	field(w, "Trips:", formatNumber(c.Trips))

	if s.Duration > 0 {
		throughput := float64(s.Simulated) / s.Duration.Seconds()
		fmt.Fprintf(w, "  %s %s %s\n",
			mutedStyle.Render("Time:"),
			titleStyle.Render(formatDuration(s.Duration)),
			mutedStyle.Render(fmt.Sprintf("(%s households/sec)", formatNumber(int64(throughput)))))
	}

	if len(rows) > 0 {
		fmt.Fprintln(w)
		tables := make([]string, 0, len(rows))
		for name := range rows {
			tables = append(tables, name)
		}
		sort.Strings(tables)
		for _, name := range tables {
			field(w, name+":", formatNumber(rows[name])+" rows")
		}
	}
	for _, f := range files {
		size := ""
		if info, err := os.Stat(f); err == nil {
			size = formatBytes(info.Size())
		}
		fmt.Fprintf(w, "  %s %s\n", codeStyle.Render(filepath.Base(f)), mutedStyle.Render(size))
	}

	for i, f := range s.Faults {
		if i == 5 {
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  ... %d more", len(s.Faults)-i)))
			break
		}
		fmt.Fprintf(w, "  %s household %d: %v\n", accentStyle.Render(string(f.Code)), f.HouseholdID, f.Err)
	}
	fmt.Fprintln(w)
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render(label), titleStyle.Render(value))
}

// ShowProgress creates a progress bar counting households.
func ShowProgress(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}
