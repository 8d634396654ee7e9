// Package output provides terminal output utilities for bvm.
//
// This package includes:
//   - Table rendering for installed versions, release pages and history
//   - A JSON envelope for machine-readable output
//   - Progress bars and spinners for long-running operations
//
// Tables use plain ASCII alignment and ANSI color codes only when stdout is
// a terminal. Progress indicators are safe to use from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/bvm/internal/manager"
	"github.com/blackwell-systems/bvm/internal/releases"
	"github.com/blackwell-systems/bvm/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderVersionTable renders installed versions in the order given.
// The active version is marked with an asterisk.
func RenderVersionTable(versions []manager.Installed) string {
	if len(versions) == 0 {
		return "No versions installed.\n"
	}

	width := len("Version")
	for _, v := range versions {
		if n := len(v.Version); n > width {
			width = n
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %-*s %-10s %-16s %s\n", width, "Version", "Size", "Installed", "Path"))
	sb.WriteString(strings.Repeat("─", width+40))
	sb.WriteString("\n")

	for _, v := range versions {
		marker := " "
		name := fmt.Sprintf("%-*s", width, v.Version)
		if v.Active {
			marker = colorize(colorGreen, "*")
			name = colorize(colorGreen, name)
		}
		sb.WriteString(fmt.Sprintf("%s %s %-10s %-16s %s\n",
			marker,
			name,
			formatSize(v.SizeBytes),
			formatRelativeTime(v.InstalledAt),
			v.Path))
	}
	return sb.String()
}

// RenderVersionList renders one version per line, the plain listing used
// when the output is piped.
func RenderVersionList(versions []manager.Installed) string {
	var sb strings.Builder
	for _, v := range versions {
		sb.WriteString(string(v.Version))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderReleasePage renders one page of the release feed followed by a
// pagination hint.
func RenderReleasePage(p *releases.Page) string {
	var sb strings.Builder
	if p.Empty() {
		sb.WriteString(fmt.Sprintf("No releases on page %d.\n", p.Number))
		return sb.String()
	}

	for _, label := range p.Releases {
		sb.WriteString("  ")
		sb.WriteString(label)
		if v := releases.VersionFromLabel(label); v != "" && v != label {
			sb.WriteString(colorize(colorGray, fmt.Sprintf("  (bvm add %s)", v)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if p.HasMore {
		sb.WriteString(fmt.Sprintf("Page %d. More releases: bvm browse %d\n", p.Number, p.Next))
	} else {
		sb.WriteString(fmt.Sprintf("Page %d. No more releases.\n", p.Number))
	}
	return sb.String()
}

// RenderHistory renders history events, newest first.
func RenderHistory(events []*store.Event) string {
	if len(events) == 0 {
		return "No history recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-20s %-8s %-16s %s\n", "When", "Action", "Version", "Detail"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, ev := range events {
		action := fmt.Sprintf("%-8s", ev.Action)
		sb.WriteString(fmt.Sprintf("%-20s %s %-16s %s\n",
			formatRelativeTime(ev.Timestamp),
			colorize(actionColor(ev.Action), action),
			truncate(ev.Version, 16),
			ev.Detail))
	}
	return sb.String()
}

func actionColor(a store.Action) string {
	switch a {
	case store.ActionAdd:
		return colorGreen
	case store.ActionDelete:
		return colorRed
	case store.ActionSwitch:
		return colorYellow
	default:
		return ""
	}
}

// Check is one line of a diagnostic report.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Warn   bool   `json:"warn,omitempty"`
	Detail string `json:"detail"`
}

// RenderChecks renders diagnostic results with a pass/warn/fail mark.
func RenderChecks(checks []Check) string {
	var sb strings.Builder
	for _, c := range checks {
		var mark string
		switch {
		case c.OK:
			mark = colorize(colorGreen, "✓")
		case c.Warn:
			mark = colorize(colorYellow, "⚠")
		default:
			mark = colorize(colorRed, "✗")
		}
		sb.WriteString(fmt.Sprintf("%s %-14s %s\n", mark, c.Name, c.Detail))
	}
	return sb.String()
}

// formatSize renders a byte count; an empty directory shows as "-".
func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytes))
}

// formatRelativeTime renders t relative to now, e.g. "3 days ago".
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
