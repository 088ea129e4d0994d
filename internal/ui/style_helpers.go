package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/five82/actlog/internal/logview"
)

// BgStyle provides helpers for rendering text with consistent background colors.
// This solves lipgloss's limitation where ANSI reset codes between styled segments
// cause gaps in background color. See: https://github.com/charmbracelet/lipgloss/discussions/78
type BgStyle struct {
	bg    lipgloss.Color
	space string // cached styled space
}

// NewBgStyle creates a new background style helper for the given color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render renders text with a style, ensuring ALL characters including spaces
// have the background color applied.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}

	// If no spaces, simple render with background
	if !strings.Contains(text, " ") {
		return style.Background(b.bg).Render(text)
	}

	// Split on spaces, style each word, rejoin with styled spaces
	wordStyle := style.Background(b.bg)
	words := strings.Split(text, " ")
	result := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			result = append(result, wordStyle.Render(w))
		} else {
			// Preserve multiple consecutive spaces
			result = append(result, "")
		}
	}
	return strings.Join(result, b.space)
}

// Space returns a single styled space.
func (b BgStyle) Space() string {
	return b.space
}

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	return lipgloss.NewStyle().Background(b.bg).Render(strings.Repeat(" ", n))
}

// FillLine pads rendered content to fill the specified width with the background color.
// Use this to ensure lines fill the full viewport width.
func (b BgStyle) FillLine(content string, width int) string {
	return lipgloss.NewStyle().Background(b.bg).Width(width).Render(content)
}

// FitLine cuts rendered content to width cells and fills the rest, so a long
// log line never wraps inside the viewport.
func (b BgStyle) FitLine(content string, width int) string {
	if width <= 0 {
		return content
	}
	return b.FillLine(ansi.Truncate(content, width, ""), width)
}

// ansiStyle converts the attributes of an ANSI run onto base.
func ansiStyle(base lipgloss.Style, ts logview.TextStyle) lipgloss.Style {
	if ts.Foreground != "" {
		base = base.Foreground(lipgloss.Color(ts.Foreground))
	}
	if ts.Background != "" {
		base = base.Background(lipgloss.Color(ts.Background))
	}
	if ts.Bold {
		base = base.Bold(true)
	}
	if ts.Faint {
		base = base.Faint(true)
	}
	if ts.Italic {
		base = base.Italic(true)
	}
	if ts.Underline {
		base = base.Underline(true)
	}
	return base
}

// RenderDecorated draws text with decorations applied over it. Decoration
// offsets are byte offsets into text. Later decorations win, so line-kind
// colors are overridden by ANSI runs the log carried itself.
func (b BgStyle) RenderDecorated(text string, decs []logview.Decoration, styles Styles) string {
	if text == "" {
		return ""
	}
	cuts := []int{0, len(text)}
	for _, d := range decs {
		cuts = append(cuts, clampInt(d.Start, 0, len(text)), clampInt(d.End, 0, len(text)))
	}
	sort.Ints(cuts)

	var out strings.Builder
	prev := -1
	for i := 0; i+1 < len(cuts); i++ {
		start, end := cuts[i], cuts[i+1]
		if start == end || start == prev {
			continue
		}
		prev = start
		style := styles.Text
		ownBg := false
		for _, d := range decs {
			if d.Start > start || d.End < end {
				continue
			}
			if d.Kind == logview.DecorANSI {
				style = ansiStyle(style, d.Style)
				ownBg = ownBg || d.Style.Background != ""
				continue
			}
			style = styles.Decoration(d.Kind)
		}
		if ownBg {
			out.WriteString(style.Render(text[start:end]))
			continue
		}
		out.WriteString(b.Render(text[start:end], style))
	}
	return out.String()
}
