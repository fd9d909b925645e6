package model

// StageSummary accumulates item outcomes for one stage.
type StageSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Add merges other into s.
func (s *StageSummary) Add(other StageSummary) {
	s.Total += other.Total
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

// PipelineSummary is the aggregate result of one pipeline pass.
type PipelineSummary struct {
	StageSummary

	Stages         map[Stage]StageSummary `json:"stages"`
	DisabledReason string                 `json:"skipped_reason,omitempty"`
}

// NewPipelineSummary returns an empty summary with every stage present.
func NewPipelineSummary() *PipelineSummary {
	stages := make(map[Stage]StageSummary, 3)
	for _, st := range Stages() {
		stages[st] = StageSummary{}
	}
	return &PipelineSummary{Stages: stages}
}

// Record stores the stage result and folds it into the aggregate counters.
func (p *PipelineSummary) Record(stage Stage, s StageSummary) {
	p.Stages[stage] = s
	p.StageSummary.Add(s)
}
