package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	harness "github.com/wippyai/function-harness"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Render formats the report for a terminal.
func Render(r Report) string {
	var b strings.Builder

	if r.Name != "" {
		b.WriteString(headerStyle.Render(r.Name))
		b.WriteString(faintStyle.Render(fmt.Sprintf(" (%s)", byteSize(uint64(r.ModuleSizeBytes)))))
		b.WriteString("\n\n")
	}

	b.WriteString(headerStyle.Render("Status"))
	b.WriteByte('\n')
	b.WriteString(renderStatus(r))
	b.WriteString("\n\n")

	if r.Logs != "" {
		b.WriteString(headerStyle.Render("Logs"))
		b.WriteByte('\n')
		b.WriteString(r.Logs)
		if !strings.HasSuffix(r.Logs, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if out := renderOutput(r); out != "" {
		b.WriteString(headerStyle.Render("Output"))
		b.WriteByte('\n')
		b.WriteString(out)
		b.WriteString("\n\n")
	}

	if len(r.Violations) > 0 {
		b.WriteString(headerStyle.Render("Schema Violations"))
		b.WriteByte('\n')
		for _, v := range r.Violations {
			path := strings.Join(v.Path, ".")
			if path == "" {
				path = "(root)"
			}
			b.WriteString(warnStyle.Render(fmt.Sprintf("  %s: %s", path, v.Message)))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString(headerStyle.Render("Resource Usage"))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "  Fuel consumed: %d\n", r.Profile.FuelConsumed)
	fmt.Fprintf(&b, "  Peak memory:   %s\n", byteSize(r.Profile.PeakMemoryBytes))
	fmt.Fprintf(&b, "  Peak stack:    %s\n", byteSize(r.Profile.PeakStackBytes))
	if r.ScaleFactor > 1 {
		fmt.Fprintf(&b, "  Scale factor:  %.1f\n", r.ScaleFactor)
	}
	return b.String()
}

func renderStatus(r Report) string {
	switch r.Status {
	case StatusCompleted:
		if len(r.Violations) > 0 {
			return warnStyle.Render("completed with schema violations")
		}
		return successStyle.Render("completed")
	case StatusTrapped:
		return failureStyle.Render("trapped: " + r.Trap)
	case StatusLimitExceeded:
		return failureStyle.Render("limit exceeded: " + limitText(r.Limit))
	case StatusInvalidModule:
		return failureStyle.Render("invalid module: " + r.Reason)
	case StatusInvalidInput:
		return failureStyle.Render("invalid input: " + r.Reason)
	case StatusInvalidOutput:
		return failureStyle.Render("invalid output: " + r.Reason)
	}
	return failureStyle.Render(string(r.Status))
}

func limitText(l harness.Limit) string {
	switch l {
	case harness.LimitLinearMemory:
		return "linear memory budget exhausted"
	case harness.LimitStack:
		return "call stack budget exhausted"
	case harness.LimitRuntime:
		return "fuel budget exhausted"
	}
	return string(l)
}

func renderOutput(r Report) string {
	if r.Output != nil {
		pretty, err := json.MarshalIndent(r.Output, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", r.Output)
		}
		return string(pretty)
	}
	if len(r.RawOutput) > 0 {
		return r.Codec.Humanize(r.RawOutput)
	}
	return ""
}

// byteSize renders a byte count with a binary unit suffix.
func byteSize(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%dB", n)
}
