package logview

import (
	"bytes"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser splits a job log into step sections. It is incremental: Write may be
// called repeatedly with successive chunks of the log and Info reflects
// everything written so far. Sections that were closed by a later marker are
// never revisited.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	lines    []LineInfo
	sections []Section
	pending  []byte
	started  bool
}

// Parse parses a complete log text.
func Parse(text string) *LogInfo {
	var p Parser
	_, _ = p.Write([]byte(text))
	return p.Info()
}

// Write feeds the next chunk of log text. It never fails.
func (p *Parser) Write(b []byte) (int, error) {
	n := len(b)
	if !p.started && len(b) > 0 {
		p.pending = append(p.pending, b...)
		if len(p.pending) < len(utf8BOM) && bytes.HasPrefix(utf8BOM, p.pending) {
			return n, nil
		}
		p.started = true
		b = bytes.TrimPrefix(p.pending, utf8BOM)
		p.pending = nil
	}
	for len(b) > 0 {
		i := bytes.IndexByte(b, '\n')
		if i < 0 {
			p.pending = append(p.pending, b...)
			break
		}
		var line string
		if len(p.pending) > 0 {
			line = string(append(p.pending, b[:i]...))
			p.pending = p.pending[:0]
		} else {
			line = string(b[:i])
		}
		p.push(classifyLine(strings.TrimSuffix(line, "\r")))
		b = b[i+1:]
	}
	return n, nil
}

// Lines returns the number of complete lines consumed.
func (p *Parser) Lines() int {
	return len(p.lines)
}

// Reset discards all parser state.
func (p *Parser) Reset() {
	*p = Parser{}
}

// Info snapshots the parse. A trailing line without its newline is included
// tentatively; it is parsed again once complete.
func (p *Parser) Info() *LogInfo {
	// Lines are append-only and never rewritten, so the snapshot may share the
	// backing array as long as its capacity stops at its length.
	info := &LogInfo{
		Lines:    p.lines[:len(p.lines):len(p.lines)],
		Sections: append([]Section(nil), p.sections...),
	}
	if len(p.pending) > 0 && p.started {
		line := classifyLine(strings.TrimSuffix(string(p.pending), "\r"))
		info.Lines = append(info.Lines, line)
		info.Sections = extendSections(info.Sections, line, len(info.Lines)-1)
	}
	return info
}

func (p *Parser) push(line LineInfo) {
	p.lines = append(p.lines, line)
	p.sections = extendSections(p.sections, line, len(p.lines)-1)
}

// extendSections accounts for line idx, opening a new section on a step marker
// and otherwise growing the last one.
func extendSections(sections []Section, line LineInfo, idx int) []Section {
	if line.Kind == LineGroupStart {
		if n := len(sections); n > 0 {
			sections[n-1].End = idx - 1
		}
		return append(sections, Section{
			Name:   line.Marker,
			Number: len(sections) + 1,
			Start:  idx,
			End:    idx,
		})
	}
	if len(sections) == 0 {
		return append(sections, Section{Number: 1, Start: idx, End: idx})
	}
	sections[len(sections)-1].End = idx
	return sections
}
