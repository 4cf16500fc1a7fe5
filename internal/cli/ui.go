package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/volvulus/untwist/pkg/kind"
	"github.com/volvulus/untwist/pkg/pipeline"
)

// stdout receives all status output. Tests replace it.
var stdout io.Writer = os.Stdout

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
)

// kindColors colours node kinds in the inspector and summaries.
var kindColors = map[kind.StyleKind]lipgloss.Color{
	kind.StyleMemory:     colorBlue,
	kind.StyleLink:       colorGray,
	kind.StyleIdentity:   colorGreen,
	kind.StyleCollection: colorCyan,
	kind.StyleContainer:  colorYellow,
	kind.StylePolicy:     colorRed,
	kind.StyleUnknown:    colorDim,
}

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// maxWarningsShown caps the warnings printed after a load.
const maxWarningsShown = 10

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+styleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+styleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Fprintln(stdout, "  "+styleDim.Render(iconArrow)+" "+styleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+styleValue.Render(value))
}

// printStats prints graph sizes and the cache state on one line.
func printStats(s pipeline.Stats, cached bool) {
	parts := []string{
		fmt.Sprintf("%d records", s.Records),
		fmt.Sprintf("%d nodes", s.Nodes),
		fmt.Sprintf("%d edges", s.Edges),
	}
	if s.Connectivity.Components > 1 {
		parts = append(parts, fmt.Sprintf("%d components", s.Connectivity.Components))
	}
	status := styleComputed.Render("fresh")
	if cached {
		status = styleCached.Render("cached")
	}

	rendered := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		rendered = append(rendered, styleDim.Render(p))
	}
	rendered = append(rendered, status)
	fmt.Fprintln(stdout, "  "+strings.Join(rendered, styleDim.Render(" · ")))
}

// printTimings prints per-stage durations.
func printTimings(s pipeline.Stats) {
	stages := []struct {
		name string
		d    time.Duration
	}{
		{"decode", s.DecodeTime},
		{"build", s.BuildTime},
		{"validate", s.ValidateTime},
		{"project", s.ProjectTime},
	}
	for _, st := range stages {
		printKeyValue("  "+st.name, st.d.Round(time.Microsecond).String())
	}
}

// printWarnings prints up to maxWarningsShown warnings.
func printWarnings(ws []pipeline.Warning) {
	if len(ws) == 0 {
		return
	}
	printWarning("%d warnings", len(ws))
	for i, w := range ws {
		if i == maxWarningsShown {
			printDetail("… and %d more (use -o to write them all)", len(ws)-maxWarningsShown)
			break
		}
		printDetail("%s %s: %s", w.Source, w.Code, w.Message)
	}
}

// printFailure prints a failed load.
func printFailure(f *pipeline.Failure) {
	printError("%s", f.Message)
	printDetail("kind: %s", f.Kind)
	if f.RecordID != "" {
		printDetail("record: %s", f.RecordID)
	}
}
