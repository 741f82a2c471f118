package allocation

import (
	"context"
	"fmt"
	"time"

	"shopstock/internal/core/id"
)

// journal records applied steps and how to undo them. saleID names the
// sale the operation works on once it is known.
type journal struct {
	entries []journalEntry
	saleID  id.ID
}

type journalEntry struct {
	step string
	undo func(ctx context.Context) error
}

func (j *journal) add(step string, undo func(ctx context.Context) error) {
	j.entries = append(j.entries, journalEntry{step: step, undo: undo})
}

func (j *journal) len() int { return len(j.entries) }

// rollback undoes entries newest first. It keeps going past failures so
// that as much as possible is restored, and reports each step's outcome.
func (j *journal) rollback(ctx context.Context) ([]StepOutcome, error) {
	outcomes := make([]StepOutcome, 0, len(j.entries))
	var failed int
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		out := StepOutcome{Step: e.step, Undone: true}
		if err := e.undo(ctx); err != nil {
			out.Undone = false
			out.Error = err.Error()
			failed++
		}
		outcomes = append(outcomes, out)
	}
	if failed > 0 {
		return outcomes, fmt.Errorf("%d of %d compensation steps failed", failed, len(j.entries))
	}
	return outcomes, nil
}

// StepOutcome is one undone (or not) journal step.
type StepOutcome struct {
	Step   string `json:"step"`
	Undone bool   `json:"undone"`
	Error  string `json:"error,omitempty"`
}

// Incident describes an operation whose compensation failed. Batch and
// sale data need manual reconciliation.
type Incident struct {
	Operation  string        `json:"operation"`
	Keys       []string      `json:"keys"`
	SaleID     string        `json:"saleId,omitempty"`
	Cause      string        `json:"cause"`
	Steps      []StepOutcome `json:"steps"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// IncidentRecorder persists incidents for operators.
type IncidentRecorder interface {
	Record(ctx context.Context, incident Incident) error
}
