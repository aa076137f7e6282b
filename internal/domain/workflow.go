package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageStatus tracks one stage through the workflow.
type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageRunning StageStatus = "running"
	StageDone    StageStatus = "done"
	StageFailed  StageStatus = "failed"
)

// StageRecord is the append-only record kept per stage.
type StageRecord struct {
	Name    string
	Status  StageStatus
	Result  *ExtractionResult
	Err     error
	Started time.Time
	Ended   time.Time
}

// WorkflowState tracks one multi-stage run over a document. It becomes
// terminal on the first failed stage or once every stage is done; a
// terminal state never accepts further transitions.
type WorkflowState struct {
	RunID      uuid.UUID
	DocumentID string
	StartedAt  time.Time
	EndedAt    time.Time

	order    []string
	records  map[string]*StageRecord
	terminal bool
	failed   bool
}

// NewWorkflowState creates a pending state for the named stages.
func NewWorkflowState(documentID string, stageNames []string) *WorkflowState {
	s := &WorkflowState{
		RunID:      uuid.New(),
		DocumentID: documentID,
		StartedAt:  time.Now(),
		order:      append([]string(nil), stageNames...),
		records:    make(map[string]*StageRecord, len(stageNames)),
	}
	for _, name := range stageNames {
		s.records[name] = &StageRecord{Name: name, Status: StagePending}
	}
	return s
}

// StageNames returns the stage names in execution order.
func (s *WorkflowState) StageNames() []string {
	return append([]string(nil), s.order...)
}

// Record returns the record for the named stage, or nil.
func (s *WorkflowState) Record(name string) *StageRecord {
	return s.records[name]
}

// Terminal reports whether the workflow accepts further transitions.
func (s *WorkflowState) Terminal() bool {
	return s.terminal
}

// Failed reports whether the workflow ended on a fatal stage error.
func (s *WorkflowState) Failed() bool {
	return s.failed
}

// MarkRunning transitions a pending stage to running.
func (s *WorkflowState) MarkRunning(name string) {
	rec, ok := s.records[name]
	if !ok || s.terminal || rec.Status != StagePending {
		return
	}
	rec.Status = StageRunning
	rec.Started = time.Now()
}

// MarkDone records a stage result. Fallback results count as done;
// only transport-level failures fail a stage.
func (s *WorkflowState) MarkDone(name string, result *ExtractionResult) {
	rec, ok := s.records[name]
	if !ok || s.terminal || rec.Status != StageRunning {
		return
	}
	rec.Status = StageDone
	rec.Result = result
	rec.Ended = time.Now()
	if s.allDone() {
		s.terminal = true
		s.EndedAt = rec.Ended
	}
}

// MarkFailed records a fatal stage error and makes the state terminal.
func (s *WorkflowState) MarkFailed(name string, err error) {
	rec, ok := s.records[name]
	if !ok || s.terminal {
		return
	}
	rec.Status = StageFailed
	rec.Err = err
	rec.Ended = time.Now()
	s.terminal = true
	s.failed = true
	s.EndedAt = rec.Ended
}

// DoneResults returns the results of completed stages in order.
func (s *WorkflowState) DoneResults() []*ExtractionResult {
	out := make([]*ExtractionResult, 0, len(s.order))
	for _, name := range s.order {
		if rec := s.records[name]; rec.Status == StageDone && rec.Result != nil {
			out = append(out, rec.Result)
		}
	}
	return out
}

func (s *WorkflowState) allDone() bool {
	for _, rec := range s.records {
		if rec.Status != StageDone {
			return false
		}
	}
	return true
}
