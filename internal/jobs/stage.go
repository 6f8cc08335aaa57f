package jobs

// Stage is the position of a job in the pipeline. Stages are ordered; a job at
// a given stage has completed every earlier one.
type Stage int

const (
	StageCreated Stage = iota
	StageStructureResolved
	StageSplit
	StageMerged
	StageQCed
)

func (s Stage) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageStructureResolved:
		return "structure_resolved"
	case StageSplit:
		return "split"
	case StageMerged:
		return "merged"
	case StageQCed:
		return "qced"
	default:
		return "unknown"
	}
}

// Reached reports whether s is at or past other
func (s Stage) Reached(other Stage) bool {
	return s >= other
}
