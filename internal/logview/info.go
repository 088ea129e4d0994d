package logview

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// LineKind classifies a raw log line for the formatter.
type LineKind int

const (
	LinePlain LineKind = iota
	LineGroupStart
	LineGroupEnd
	LineError
	LineWarning
	LineNotice
	LineDebug
	LineCommand
)

func (k LineKind) String() string {
	switch k {
	case LineGroupStart:
		return "group"
	case LineGroupEnd:
		return "endgroup"
	case LineError:
		return "error"
	case LineWarning:
		return "warning"
	case LineNotice:
		return "notice"
	case LineDebug:
		return "debug"
	case LineCommand:
		return "command"
	default:
		return "plain"
	}
}

// LineInfo is the per-line classification kept alongside the parsed sections.
type LineInfo struct {
	Raw          string
	TimestampLen int // bytes of Raw taken by the timestamp prefix, including its trailing space
	Kind         LineKind
	Marker       string // text after a ##[...] marker, ANSI stripped and trimmed
}

// Timestamp returns the timestamp prefix without its trailing space.
func (l LineInfo) Timestamp() string {
	return strings.TrimSpace(l.Raw[:l.TimestampLen])
}

// Content returns the line after the timestamp prefix.
func (l LineInfo) Content() string {
	return l.Raw[l.TimestampLen:]
}

// Section is the slice of the log produced by one step. End is inclusive.
type Section struct {
	Name   string // empty when the marker carried no name
	Number int    // 1-based position
	Start  int
	End    int
}

// Lines returns the number of lines in the section, header included.
func (s Section) Lines() int {
	return s.End - s.Start + 1
}

// Contains reports whether line falls inside the section.
func (s Section) Contains(line int) bool {
	return line >= s.Start && line <= s.End
}

// Label returns the section name, or "Step N" when it has none.
func (s Section) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return "Step " + strconv.Itoa(s.Number)
}

// LogInfo is the parsed structure of one job log. It is never mutated after
// construction; consumers share it read-only.
type LogInfo struct {
	Sections []Section
	Lines    []LineInfo
}

// LineCount returns the number of lines parsed.
func (i *LogInfo) LineCount() int {
	if i == nil {
		return 0
	}
	return len(i.Lines)
}

// SectionAt returns the section containing line.
func (i *LogInfo) SectionAt(line int) (Section, bool) {
	if i == nil {
		return Section{}, false
	}
	for _, s := range i.Sections {
		if s.Contains(line) {
			return s, true
		}
	}
	return Section{}, false
}

// Text joins the raw lines back into the document text.
func (i *LogInfo) Text() string {
	if i == nil || len(i.Lines) == 0 {
		return ""
	}
	var b strings.Builder
	for idx, l := range i.Lines {
		if idx > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Raw)
	}
	return b.String()
}

var (
	timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z `)
	markerRe    = regexp.MustCompile(`^##\[([a-z]+)\](.*)$`)
	errorLineRe = regexp.MustCompile(`^(?:Error|ERROR|error)(?::|\s)`)
)

// classifyLine inspects one raw line (no trailing newline).
func classifyLine(raw string) LineInfo {
	info := LineInfo{Raw: raw}
	if loc := timestampRe.FindStringIndex(raw); loc != nil {
		info.TimestampLen = loc[1]
	}
	content := strings.TrimSpace(ansi.Strip(raw[info.TimestampLen:]))
	if m := markerRe.FindStringSubmatch(content); m != nil {
		info.Marker = strings.TrimSpace(m[2])
		switch m[1] {
		case "group":
			info.Kind = LineGroupStart
		case "endgroup":
			info.Kind = LineGroupEnd
		case "error":
			info.Kind = LineError
		case "warning":
			info.Kind = LineWarning
		case "notice":
			info.Kind = LineNotice
		case "debug":
			info.Kind = LineDebug
		case "command":
			info.Kind = LineCommand
		default:
			info.Marker = ""
		}
		return info
	}
	if errorLineRe.MatchString(content) {
		info.Kind = LineError
	}
	return info
}
