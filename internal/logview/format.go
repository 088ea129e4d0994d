package logview

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DecorationKind says why a range is decorated.
type DecorationKind int

const (
	DecorTimestamp DecorationKind = iota
	DecorANSI
	DecorHeader
	DecorGroupEnd
	DecorError
	DecorWarning
	DecorNotice
	DecorDebug
	DecorCommand
)

// TextStyle is the visual style carried by an ANSI SGR run. Colors are ANSI
// palette indexes ("0".."255") or "#rrggbb".
type TextStyle struct {
	Foreground string `json:"fg,omitempty"`
	Background string `json:"bg,omitempty"`
	Bold       bool   `json:"bold,omitempty"`
	Faint      bool   `json:"faint,omitempty"`
	Italic     bool   `json:"italic,omitempty"`
	Underline  bool   `json:"underline,omitempty"`
}

// IsZero reports whether the style is the terminal default.
func (s TextStyle) IsZero() bool {
	return s == TextStyle{}
}

// Decoration styles display text bytes [Start, End) of Line.
type Decoration struct {
	Line  int            `json:"line"`
	Start int            `json:"start"`
	End   int            `json:"end"`
	Kind  DecorationKind `json:"kind"`
	Style TextStyle      `json:"style,omitempty"`
}

// FormattedLine is a line ready for display: escape sequences removed and the
// styling expressed as decorations over the remaining text.
type FormattedLine struct {
	Line        int
	Text        string
	Decorations []Decoration
}

// FormatLine formats one parsed line. SGR state starts from the default at
// every line, so lines can be formatted independently.
func FormatLine(idx int, line LineInfo) FormattedLine {
	text, runs := stripSGR(line.Raw)
	out := FormattedLine{Line: idx, Text: text}

	tsEnd := 0
	if line.TimestampLen > 0 && line.TimestampLen <= len(text) {
		tsEnd = len(strings.TrimRight(text[:line.TimestampLen], " "))
		out.Decorations = append(out.Decorations, Decoration{Line: idx, Start: 0, End: tsEnd, Kind: DecorTimestamp})
		tsEnd = line.TimestampLen
	}

	if kind, ok := lineDecoration(line.Kind); ok && tsEnd < len(text) {
		out.Decorations = append(out.Decorations, Decoration{Line: idx, Start: tsEnd, End: len(text), Kind: kind})
	}

	for _, r := range runs {
		r.Line = idx
		out.Decorations = append(out.Decorations, r)
	}
	return out
}

func lineDecoration(kind LineKind) (DecorationKind, bool) {
	switch kind {
	case LineGroupStart:
		return DecorHeader, true
	case LineGroupEnd:
		return DecorGroupEnd, true
	case LineError:
		return DecorError, true
	case LineWarning:
		return DecorWarning, true
	case LineNotice:
		return DecorNotice, true
	case LineDebug:
		return DecorDebug, true
	case LineCommand:
		return DecorCommand, true
	default:
		return 0, false
	}
}

// stripSGR removes escape sequences from raw and returns the styled runs
// expressed over the stripped text.
func stripSGR(raw string) (string, []Decoration) {
	if strings.IndexByte(raw, 0x1b) < 0 {
		return raw, nil
	}
	var (
		b     strings.Builder
		runs  []Decoration
		cur   TextStyle
		start int
	)
	b.Grow(len(raw))
	flush := func() {
		if !cur.IsZero() && b.Len() > start {
			runs = append(runs, Decoration{Start: start, End: b.Len(), Kind: DecorANSI, Style: cur})
		}
		start = b.Len()
	}

	for i := 0; i < len(raw); {
		if raw[i] != 0x1b {
			b.WriteByte(raw[i])
			i++
			continue
		}
		if i+1 >= len(raw) {
			break
		}
		switch raw[i+1] {
		case '[':
			j := i + 2
			for j < len(raw) && raw[j] >= 0x30 && raw[j] <= 0x3f {
				j++
			}
			params := raw[i+2 : j]
			for j < len(raw) && raw[j] >= 0x20 && raw[j] <= 0x2f {
				j++
			}
			if j >= len(raw) {
				i = len(raw)
				continue
			}
			if raw[j] == 'm' {
				next := applySGR(cur, params)
				if next != cur {
					flush()
					cur = next
				}
			}
			i = j + 1
		case ']':
			// OSC, terminated by BEL or ST.
			j := i + 2
			for j < len(raw) {
				if raw[j] == 0x07 {
					j++
					break
				}
				if raw[j] == 0x1b && j+1 < len(raw) && raw[j+1] == '\\' {
					j += 2
					break
				}
				j++
			}
			i = j
		default:
			i += 2
		}
	}
	flush()
	return b.String(), runs
}

func applySGR(s TextStyle, params string) TextStyle {
	if params == "" {
		return TextStyle{}
	}
	codes := strings.Split(params, ";")
	for i := 0; i < len(codes); i++ {
		n, err := strconv.Atoi(codes[i])
		if err != nil {
			if codes[i] == "" {
				n = 0
			} else {
				continue
			}
		}
		switch {
		case n == 0:
			s = TextStyle{}
		case n == 1:
			s.Bold = true
		case n == 2:
			s.Faint = true
		case n == 3:
			s.Italic = true
		case n == 4:
			s.Underline = true
		case n == 22:
			s.Bold, s.Faint = false, false
		case n == 23:
			s.Italic = false
		case n == 24:
			s.Underline = false
		case n >= 30 && n <= 37:
			s.Foreground = strconv.Itoa(n - 30)
		case n == 39:
			s.Foreground = ""
		case n >= 40 && n <= 47:
			s.Background = strconv.Itoa(n - 40)
		case n == 49:
			s.Background = ""
		case n >= 90 && n <= 97:
			s.Foreground = strconv.Itoa(n - 90 + 8)
		case n >= 100 && n <= 107:
			s.Background = strconv.Itoa(n - 100 + 8)
		case n == 38 || n == 48:
			color, consumed := extendedColor(codes[i+1:])
			i += consumed
			if color == "" {
				continue
			}
			if n == 38 {
				s.Foreground = color
			} else {
				s.Background = color
			}
		}
	}
	return s
}

// extendedColor decodes the arguments following 38 or 48.
func extendedColor(args []string) (string, int) {
	if len(args) == 0 {
		return "", 0
	}
	switch args[0] {
	case "5":
		if len(args) < 2 {
			return "", len(args)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 || n > 255 {
			return "", 2
		}
		return strconv.Itoa(n), 2
	case "2":
		if len(args) < 4 {
			return "", len(args)
		}
		var rgb [3]int
		for k := 0; k < 3; k++ {
			v, err := strconv.Atoi(args[k+1])
			if err != nil || v < 0 || v > 255 {
				return "", 4
			}
			rgb[k] = v
		}
		return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]), 4
	default:
		return "", 1
	}
}

// View is an open log view and the decorations currently applied to it.
type View struct {
	ID    Identifier
	lines map[int]FormattedLine
}

// NewView returns an undecorated view.
func NewView(id Identifier) *View {
	return &View{ID: id, lines: make(map[int]FormattedLine)}
}

// Line returns the formatted line if it has been decorated.
func (v *View) Line(idx int) (FormattedLine, bool) {
	fl, ok := v.lines[idx]
	return fl, ok
}

// Decorations returns every applied decoration ordered by line and start.
func (v *View) Decorations() []Decoration {
	idxs := make([]int, 0, len(v.lines))
	for idx := range v.lines {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	var out []Decoration
	for _, idx := range idxs {
		out = append(out, v.lines[idx].Decorations...)
	}
	return out
}

// Formatter decorates views from parsed log info.
type Formatter struct{}

// Apply formats lines [from, to) of info into v, replacing whatever was applied
// to those lines before. Lines past the end of info are dropped from v.
func (Formatter) Apply(v *View, info *LogInfo, from, to int) {
	n := info.LineCount()
	for idx := range v.lines {
		if idx >= n {
			delete(v.lines, idx)
		}
	}
	from = max(from, 0)
	to = min(to, n)
	for idx := from; idx < to; idx++ {
		v.lines[idx] = FormatLine(idx, info.Lines[idx])
	}
}
