package logview

import (
	"reflect"
	"strings"
	"testing"
)

const sampleLog = "\ufeff2024-05-01T10:00:00.0000000Z Requested labels: ubuntu-latest\n" +
	"2024-05-01T10:00:00.1000000Z ##[group]Set up job\n" +
	"2024-05-01T10:00:00.2000000Z Current runner version: '2.316.0'\n" +
	"2024-05-01T10:00:00.3000000Z ##[endgroup]\n" +
	"2024-05-01T10:00:01.0000000Z ##[group]Run actions/checkout@v4\n" +
	"2024-05-01T10:00:01.1000000Z \x1b[36;1mgit version\x1b[0m\n" +
	"2024-05-01T10:00:01.2000000Z ##[error]Process completed with exit code 1.\n" +
	"2024-05-01T10:00:02.0000000Z ##[group]\n" +
	"2024-05-01T10:00:02.1000000Z Cleaning up orphan processes\n"

var sampleSections = []Section{
	{Name: "", Number: 1, Start: 0, End: 0},
	{Name: "Set up job", Number: 2, Start: 1, End: 3},
	{Name: "Run actions/checkout@v4", Number: 3, Start: 4, End: 6},
	{Name: "", Number: 4, Start: 7, End: 8},
}

func TestParse_Sections(t *testing.T) {
	info := Parse(sampleLog)
	if info.LineCount() != 9 {
		t.Fatalf("LineCount = %d, want 9", info.LineCount())
	}
	if !reflect.DeepEqual(info.Sections, sampleSections) {
		t.Fatalf("Sections = %+v, want %+v", info.Sections, sampleSections)
	}
}

func TestParse_CoversAllLinesWithoutGaps(t *testing.T) {
	info := Parse(sampleLog)
	next := 0
	for i, s := range info.Sections {
		if s.Start != next {
			t.Fatalf("section %d starts at %d, want %d", i, s.Start, next)
		}
		if s.End < s.Start {
			t.Fatalf("section %d ends before it starts: %+v", i, s)
		}
		next = s.End + 1
	}
	if next != info.LineCount() {
		t.Fatalf("sections cover %d lines, want %d", next, info.LineCount())
	}
}

func TestParse_MarkerCounts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "empty", input: "", want: 0},
		{name: "no markers", input: "a\nb\nc\n", want: 1},
		{name: "marker first", input: "##[group]one\nx\n##[group]two\n", want: 2},
		{name: "leading lines", input: "x\n##[group]one\n##[group]two\n", want: 3},
		{name: "empty leading line", input: "\n##[group]one\n", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Parse(tt.input)
			if len(info.Sections) != tt.want {
				t.Fatalf("len(Sections) = %d, want %d (%+v)", len(info.Sections), tt.want, info.Sections)
			}
			for i, s := range info.Sections {
				if s.Number != i+1 {
					t.Fatalf("section %d Number = %d, want %d", i, s.Number, i+1)
				}
			}
		})
	}
}

func TestParse_LineEndings(t *testing.T) {
	info := Parse("##[group]Build\r\nmake\r\nlast")
	if info.LineCount() != 3 {
		t.Fatalf("LineCount = %d, want 3", info.LineCount())
	}
	if info.Sections[0].Name != "Build" {
		t.Fatalf("Name = %q, want Build", info.Sections[0].Name)
	}
	if info.Lines[2].Raw != "last" {
		t.Fatalf("last line = %q, want last", info.Lines[2].Raw)
	}
	if strings.HasPrefix(Parse(sampleLog).Lines[0].Raw, "\ufeff") {
		t.Fatalf("byte order mark was not stripped")
	}
}

func TestParse_NamesAreStripped(t *testing.T) {
	info := Parse("2024-05-01T10:00:00Z \x1b[1m##[group]\x1b[32mRun tests  \x1b[0m\n")
	if got := info.Sections[0].Name; got != "Run tests" {
		t.Fatalf("Name = %q, want %q", got, "Run tests")
	}
}

func TestParser_StreamingPrefixesKeepClosedSections(t *testing.T) {
	full := Parse(sampleLog)
	for cut := 0; cut <= len(sampleLog); cut++ {
		prefix := Parse(sampleLog[:cut])
		for i := 0; i < len(prefix.Sections)-1; i++ {
			if prefix.Sections[i] != full.Sections[i] {
				t.Fatalf("cut %d: section %d = %+v, want %+v", cut, i, prefix.Sections[i], full.Sections[i])
			}
		}
		if n := len(prefix.Sections); n > 0 && prefix.Sections[n-1].End != prefix.LineCount()-1 {
			t.Fatalf("cut %d: last section ends at %d, want %d", cut, prefix.Sections[n-1].End, prefix.LineCount()-1)
		}
	}
}

func TestParser_ChunkedWritesMatchParse(t *testing.T) {
	for _, size := range []int{1, 2, 7, 64} {
		var p Parser
		for i := 0; i < len(sampleLog); i += size {
			end := min(i+size, len(sampleLog))
			if _, err := p.Write([]byte(sampleLog[i:end])); err != nil {
				t.Fatalf("Write returned error: %v", err)
			}
			_ = p.Info()
		}
		got := p.Info()
		if !reflect.DeepEqual(got.Sections, sampleSections) {
			t.Fatalf("chunk %d: Sections = %+v, want %+v", size, got.Sections, sampleSections)
		}
		if got.LineCount() != 9 {
			t.Fatalf("chunk %d: LineCount = %d, want 9", size, got.LineCount())
		}
	}
}

func TestParser_SnapshotsAreIndependent(t *testing.T) {
	var p Parser
	_, _ = p.Write([]byte("##[group]one\nbody\n"))
	first := p.Info()
	_, _ = p.Write([]byte("more\n##[group]two\n"))

	if first.LineCount() != 2 || first.Sections[0].End != 1 {
		t.Fatalf("earlier snapshot changed: lines=%d sections=%+v", first.LineCount(), first.Sections)
	}
	second := p.Info()
	if len(second.Sections) != 2 || second.Sections[0].End != 2 {
		t.Fatalf("second snapshot sections = %+v", second.Sections)
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		raw    string
		kind   LineKind
		marker string
		tsLen  int
	}{
		{raw: "plain", kind: LinePlain},
		{raw: "2024-05-01T10:00:00.1234567Z ##[warning]careful", kind: LineWarning, marker: "careful", tsLen: 29},
		{raw: "2024-05-01T10:00:00Z ##[endgroup]", kind: LineGroupEnd, tsLen: 21},
		{raw: "##[command]/usr/bin/git version", kind: LineCommand, marker: "/usr/bin/git version"},
		{raw: "##[debug]Evaluating condition", kind: LineDebug, marker: "Evaluating condition"},
		{raw: "##[notice]heads up", kind: LineNotice, marker: "heads up"},
		{raw: "Error: something broke", kind: LineError},
		{raw: "##[section]Starting", kind: LinePlain},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := classifyLine(tt.raw)
			if got.Kind != tt.kind || got.Marker != tt.marker || got.TimestampLen != tt.tsLen {
				t.Fatalf("classifyLine(%q) = kind %v marker %q ts %d, want kind %v marker %q ts %d",
					tt.raw, got.Kind, got.Marker, got.TimestampLen, tt.kind, tt.marker, tt.tsLen)
			}
		})
	}
}
