// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/codebutton/codebutton/internal/executor"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by all CLI output. Tuned for dark terminal backgrounds.
const (
	// ColorPrimary is purple, for titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray, for subtitles and de-emphasized content.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green, for blocks that ran to completion.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red, for errors and failed blocks.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber, for warnings and unavailable blocks.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue, for block indices, paths and commands.
	ColorHighlight = lipgloss.Color("#3B82F6")

	// ColorVerbose is light gray, for verbose output and supplementary details.
	ColorVerbose = lipgloss.Color("#9CA3AF")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages and caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// CmdStyle is for block indices, commands and config keys.
	CmdStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// VerboseStyle is for verbose output and supplementary information.
	VerboseStyle = lipgloss.NewStyle().
			Foreground(ColorVerbose)

	// VerboseHighlightStyle is for emphasized items within verbose output.
	VerboseHighlightStyle = lipgloss.NewStyle().
				Foreground(ColorHighlight)

	// summaryHeaderStyle heads the per-block summary printed after a run.
	summaryHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorPrimary).
				MarginTop(1)

	// captionStyle is for block captions in listings.
	captionStyle = lipgloss.NewStyle().
			Bold(true)

	// lineRangeStyle is for document line ranges.
	lineRangeStyle = lipgloss.NewStyle().
			Foreground(ColorVerbose)
)

// statusStyle picks the style of a block status label.
func statusStyle(text string) lipgloss.Style {
	switch text {
	case executor.TextSucceeded:
		return SuccessStyle
	case executor.TextSectionUnavailable:
		return WarningStyle
	case executor.TextFailed:
		return ErrorStyle
	default:
		return VerboseStyle
	}
}
