package logview

import (
	"reflect"
	"testing"
)

func TestFoldingRanges(t *testing.T) {
	info := &LogInfo{Sections: []Section{
		{Number: 1, Start: 0, End: 10},
		{Number: 2, Start: 11, End: 20},
	}}
	got := FoldingRanges(info)
	want := []FoldingRange{{Start: 0, End: 10}, {Start: 11, End: 20}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FoldingRanges = %+v, want %+v", got, want)
	}
}

func TestFoldingRanges_SingleLineSection(t *testing.T) {
	info := Parse("##[group]a\n##[group]b\n")
	got := FoldingRanges(info)
	want := []FoldingRange{{Start: 0, End: 0}, {Start: 1, End: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FoldingRanges = %+v, want %+v", got, want)
	}
	if FoldingRanges(nil) != nil {
		t.Fatalf("FoldingRanges(nil) should be nil")
	}
}

func TestSymbols_LabelsAndOrder(t *testing.T) {
	got := Symbols(Parse(sampleLog))
	wantLabels := []string{"Step 1", "Set up job", "Run actions/checkout@v4", "Step 4"}
	if len(got) != len(wantLabels) {
		t.Fatalf("len(Symbols) = %d, want %d", len(got), len(wantLabels))
	}
	for i, sym := range got {
		if sym.Label != wantLabels[i] {
			t.Fatalf("symbol %d label = %q, want %q", i, sym.Label, wantLabels[i])
		}
		if sym.Line != sampleSections[i].Start {
			t.Fatalf("symbol %d line = %d, want %d", i, sym.Line, sampleSections[i].Start)
		}
	}
}

func TestResolve(t *testing.T) {
	info := &LogInfo{Sections: []Section{
		{Name: "build", Number: 1, Start: 0, End: 4},
		{Name: "test", Number: 2, Start: 5, End: 9},
	}}
	tests := []struct {
		name   string
		step   StepRef
		want   int
		wantOK bool
	}{
		{name: "by name", step: StepRef{Name: "test"}, want: 2, wantOK: true},
		{name: "name beats number", step: StepRef{Name: "test", Number: 1}, want: 2, wantOK: true},
		{name: "by number", step: StepRef{Number: 1}, want: 1, wantOK: true},
		{name: "unknown name falls back", step: StepRef{Name: "lint", Number: 2}, want: 2, wantOK: true},
		{name: "out of range", step: StepRef{Number: 5}},
		{name: "zero", step: StepRef{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(info, tt.step)
			if ok != tt.wantOK {
				t.Fatalf("Resolve ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Number != tt.want {
				t.Fatalf("Resolve = section %d, want %d", got.Number, tt.want)
			}
		})
	}
	if _, ok := Resolve(nil, StepRef{Number: 1}); ok {
		t.Fatalf("Resolve(nil) ok = true, want false")
	}
}
