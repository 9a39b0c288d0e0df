package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/go-drift/viewcycle/pkg/scenario"
)

// Semantic colors, as ANSI codes for terminal compatibility.
const (
	colorPass  lipgloss.Color = "2" // Green
	colorFail  lipgloss.Color = "1" // Red
	colorWarn  lipgloss.Color = "3" // Yellow
	colorInfo  lipgloss.Color = "6" // Cyan
	colorMuted lipgloss.Color = "8" // Gray
)

const (
	symbolPass = "✓"
	symbolFail = "✗"
)

// summaryRenderer formats run results for the terminal.
type summaryRenderer struct {
	box   lipgloss.Style
	title lipgloss.Style
	pass  lipgloss.Style
	fail  lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func newSummaryRenderer(w io.Writer, useColor bool) *summaryRenderer {
	r := lipgloss.NewRenderer(w)
	if useColor {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &summaryRenderer{
		box:   r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1),
		title: r.NewStyle().Bold(true).Foreground(colorInfo),
		pass:  r.NewStyle().Foreground(colorPass),
		fail:  r.NewStyle().Foreground(colorFail),
		warn:  r.NewStyle().Foreground(colorWarn),
		muted: r.NewStyle().Foreground(colorMuted),
	}
}

// header renders the line printed before a scenario's log.
func (s *summaryRenderer) header(res *scenario.Result) string {
	name := res.Scenario.Name
	if name == "" {
		name = "(unnamed)"
	}
	line := s.title.Render(name)
	if res.Scenario.Path != "" {
		line += " " + s.muted.Render(res.Scenario.Path)
	}
	return line + " " + s.muted.Render("policy="+res.Policy.String())
}

// problems renders the mismatch diff and rule violations of a failed run.
func (s *summaryRenderer) problems(res *scenario.Result) string {
	var sb strings.Builder
	for _, p := range res.Problems() {
		sb.WriteString(s.fail.Render(symbolFail+" "+p) + "\n")
	}
	if res.Mismatch != "" {
		for _, line := range strings.Split(strings.TrimRight(res.Mismatch, "\n"), "\n") {
			switch {
			case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
				line = s.fail.Render(line)
			case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
				line = s.pass.Render(line)
			default:
				line = s.muted.Render(line)
			}
			sb.WriteString("  " + line + "\n")
		}
	}
	for _, he := range res.Failures {
		sb.WriteString(s.warn.Render("  hook failure: "+he.Error()) + "\n")
	}
	return sb.String()
}

// render builds the boxed summary of all runs.
func (s *summaryRenderer) render(results []*scenario.Result) string {
	var lines []string
	passed := 0
	for _, res := range results {
		status := s.pass.Render(symbolPass)
		if res.Passed() {
			passed++
		} else {
			status = s.fail.Render(symbolFail)
		}
		detail := fmt.Sprintf("%d events, %d hook failures", len(res.Events), len(res.Failures))
		lines = append(lines, fmt.Sprintf("%s %-20s %s", status, res.Scenario.Name, s.muted.Render(detail)))
	}

	total := fmt.Sprintf("%d/%d scenarios passed", passed, len(results))
	if passed == len(results) {
		total = s.pass.Render(total)
	} else {
		total = s.fail.Render(total)
	}
	lines = append(lines, "", total)
	return s.box.Render(strings.Join(lines, "\n"))
}
