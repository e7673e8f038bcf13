// Package evaluator implements the Job Evaluator of spec §4.6: a dispatch
// table from Job.Kind to (read-inputs -> compute -> emit-plan), consulting
// the right pure algorithm in internal/rotation and the provider for live
// values. This is the only layer that mixes I/O with algorithm selection;
// the algorithms themselves stay pure and independently testable.
//
// A Plan does not decide whether the firing counts as a success -- that
// depends on which individual updates the engine manages to apply, which
// can only be known after issuing them. Plan instead carries both the
// unchanged cursor (Cursor) and the cursor to persist if the firing
// succeeds (SuccessCursor), plus the per-kind rule for what "succeeds"
// means (RequireAll).
package evaluator

import (
	"context"
	"fmt"

	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/model"
	"github.com/rotatord/rotatord/internal/provider"
	"github.com/rotatord/rotatord/internal/rotation"
)

// Update is one record's desired new value.
type Update struct {
	RecordID string
	Value    string
}

// Plan is a concrete set of updates to apply, plus enough information for
// the engine to decide the new RotationState after applying them.
type Plan struct {
	Updates []Update

	// Cursor is the value to keep if the firing does not count as a
	// success (spec P4: a totally-failed MultiPool batch does not move
	// the window; a failed Single/Shuffle leaves state untouched entirely).
	Cursor int
	// SuccessCursor is the value to persist if the firing counts as a
	// success.
	SuccessCursor int
	// RequireAll is true when every Update must succeed for the firing to
	// count as a success (Single, Shuffle); false when any single Update
	// succeeding is enough (MultiPool, per spec §4.5.2).
	RequireAll bool
}

// IsSuccess applies RequireAll against the per-update outcomes the engine
// observed after issuing the provider calls.
func (p Plan) IsSuccess(succeeded []bool) bool {
	any := false
	all := true
	for _, ok := range succeeded {
		if ok {
			any = true
		} else {
			all = false
		}
	}
	if p.RequireAll {
		return all
	}
	return any
}

// Skip carries the reason a job does not fire this tick. Evaluate never
// returns it: a missing record or other failed read comes back as the
// provider's classified error, and not-due jobs are filtered out by the
// engine before Evaluate is called.
type Skip struct {
	Reason string
}

func (s Skip) Error() string { return s.Reason }

// Evaluate dispatches on job.Kind and returns a Plan, or a provider error
// if reading the inputs failed (already classified by the provider).
func Evaluate(ctx context.Context, client provider.Client, zoneID string, job model.Job, cursor int) (Plan, error) {
	switch job.Kind {
	case model.JobSingle:
		return evaluateSingle(ctx, client, zoneID, job.Single, cursor)
	case model.JobMultiPool:
		return evaluateMultiPool(ctx, client, zoneID, job.MultiPool, cursor)
	case model.JobShuffle:
		return evaluateShuffle(ctx, client, zoneID, job.Shuffle, cursor)
	default:
		return Plan{}, faults.New(faults.KindConfig, "evaluate", fmt.Errorf("unknown job kind %q", job.Kind))
	}
}

func evaluateSingle(ctx context.Context, client provider.Client, zoneID string, p *model.SinglePayload, cursor int) (Plan, error) {
	rec, err := client.GetRecord(ctx, zoneID, p.RecordID)
	if err != nil {
		return Plan{}, err
	}

	r := rotation.Single(p.IPPool, cursor, rec.Value)
	return Plan{
		Updates:       []Update{{RecordID: p.RecordID, Value: r.Target}},
		Cursor:        cursor,
		SuccessCursor: r.NewCursor,
		RequireAll:    true,
	}, nil
}

func evaluateMultiPool(ctx context.Context, client provider.Client, zoneID string, p *model.MultiPoolPayload, cursor int) (Plan, error) {
	// spec §4.5 edge case: if any referenced record doesn't exist at the
	// provider, skip the whole job this tick.
	for _, id := range p.RecordIDs {
		if _, err := client.GetRecord(ctx, zoneID, id); err != nil {
			return Plan{}, err
		}
	}

	assignments := rotation.MultiPool(p.RecordIDs, p.IPPool, cursor)
	updates := make([]Update, len(assignments))
	for i, a := range assignments {
		updates[i] = Update{RecordID: a.RecordID, Value: a.Target}
	}
	return Plan{
		Updates:       updates,
		Cursor:        cursor,
		SuccessCursor: rotation.NextMultiPoolCursor(cursor, len(p.IPPool), true),
		RequireAll:    false,
	}, nil
}

func evaluateShuffle(ctx context.Context, client provider.Client, zoneID string, p *model.ShufflePayload, cursor int) (Plan, error) {
	shift := p.Shift
	if shift == 0 {
		shift = 1
	}

	live := make([]string, len(p.RecordIDs))
	for i, id := range p.RecordIDs {
		rec, err := client.GetRecord(ctx, zoneID, id)
		if err != nil {
			return Plan{}, err
		}
		live[i] = rec.Value
	}

	assignments := rotation.Shuffle(p.RecordIDs, live, shift)
	updates := make([]Update, len(assignments))
	for i, a := range assignments {
		updates[i] = Update{RecordID: a.RecordID, Value: a.Target}
	}
	return Plan{
		Updates:       updates,
		Cursor:        cursor,
		SuccessCursor: cursor, // shuffle carries no cursor semantics
		RequireAll:    true,
	}, nil
}
