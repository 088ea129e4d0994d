package logview

// StepRef names the step a deep link targets. Name may be empty; Number is the
// step's 1-based position in the job.
type StepRef struct {
	Name   string
	Number int
}

// Location is a line to reveal in a log view.
type Location struct {
	ID   Identifier
	Line int
}

// Resolve finds the section for step: an exact name match wins, otherwise
// Number-1 is used as an index into the sections. ok is false when neither
// applies; that is not an error.
func Resolve(info *LogInfo, step StepRef) (Section, bool) {
	if info == nil {
		return Section{}, false
	}
	if step.Name != "" {
		for _, s := range info.Sections {
			if s.Name == step.Name {
				return s, true
			}
		}
	}
	idx := step.Number - 1
	if idx < 0 || idx >= len(info.Sections) {
		return Section{}, false
	}
	return info.Sections[idx], true
}
