package logview

// FoldingRange covers lines Start..End inclusive. Start is the section header,
// so collapsing the range hides the whole step.
type FoldingRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FoldingRanges returns one flat range per section, in section order.
func FoldingRanges(info *LogInfo) []FoldingRange {
	if info == nil || len(info.Sections) == 0 {
		return nil
	}
	ranges := make([]FoldingRange, 0, len(info.Sections))
	for _, s := range info.Sections {
		ranges = append(ranges, FoldingRange{Start: s.Start, End: s.End})
	}
	return ranges
}

// Symbol is one outline entry.
type Symbol struct {
	Label  string       `json:"label"`
	Number int          `json:"number"`
	Line   int          `json:"line"`
	Range  FoldingRange `json:"range"`
}

// Symbols returns one outline entry per section in execution order.
func Symbols(info *LogInfo) []Symbol {
	if info == nil || len(info.Sections) == 0 {
		return nil
	}
	symbols := make([]Symbol, 0, len(info.Sections))
	for _, s := range info.Sections {
		symbols = append(symbols, Symbol{
			Label:  s.Label(),
			Number: s.Number,
			Line:   s.Start,
			Range:  FoldingRange{Start: s.Start, End: s.End},
		})
	}
	return symbols
}
