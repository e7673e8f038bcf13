// Package engine implements the Rotation Engine driver of spec §4.4: the
// top-level tick loop that loads config and state, evaluates due jobs
// through internal/evaluator, applies the resulting plans through
// internal/provider, and persists outcomes through internal/state.
//
// Jobs belonging to the same account are processed sequentially, in
// configuration order, under a per-account mutex (spec §5); accounts fan
// out in parallel via an errgroup. A job's failure never aborts the tick
// for other jobs -- only a whole-tick timeout does that.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rotatord/rotatord/internal/audit"
	"github.com/rotatord/rotatord/internal/clock"
	"github.com/rotatord/rotatord/internal/config"
	"github.com/rotatord/rotatord/internal/evaluator"
	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/metrics"
	"github.com/rotatord/rotatord/internal/model"
	"github.com/rotatord/rotatord/internal/provider"
	"github.com/rotatord/rotatord/internal/state"
	"github.com/rotatord/rotatord/internal/trigger"
)

// RequestTimeout bounds every individual provider call issued during a
// tick (spec §5).
const RequestTimeout = 30 * time.Second

// TriggerSubCadence is how many ticks elapse between Trigger Evaluator
// runs (spec §4.4 step 3's "every 5 ticks by default").
const TriggerSubCadence = 5

// Engine owns the stores and clients a tick needs and tracks cross-tick
// bookkeeping (the tick counter driving the trigger sub-cadence, and the
// per-account mutexes).
type Engine struct {
	configStore *config.Store
	stateStore  *state.Store
	clk         clock.Clock
	triggerEval *trigger.Evaluator
	auditSink   *audit.Sink
	log         *zap.Logger

	tickCount    int
	accountMuMu  sync.Mutex
	accountLocks map[string]chanLock
}

// chanLock is a buffered-channel mutex, acquired with ctx support (unlike
// sync.Mutex.Lock) so a cancelled tick can abandon a wait instead of
// blocking indefinitely behind a slow account.
type chanLock chan struct{}

func newChanLock() chanLock {
	c := make(chanLock, 1)
	c <- struct{}{}
	return c
}

func (c chanLock) Lock(ctx context.Context) error {
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c chanLock) Unlock() { c <- struct{}{} }

// New builds an Engine. triggerEval and auditSink may be nil to disable
// those optional components.
func New(configStore *config.Store, stateStore *state.Store, clk clock.Clock, triggerEval *trigger.Evaluator, auditSink *audit.Sink, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		configStore:  configStore,
		stateStore:   stateStore,
		clk:          clk,
		triggerEval:  triggerEval,
		auditSink:    auditSink,
		log:          log,
		accountLocks: map[string]chanLock{},
	}
}

// Tick runs exactly one evaluation pass (spec §4.4 steps 1-3) and returns
// the first fatal-at-startup-class error (config parse/validation, or an
// unreadable or corrupt state file), if any. Per-job failures are handled
// internally and never returned.
func (e *Engine) Tick(ctx context.Context) error {
	start := e.clk.Now()
	defer func() {
		metrics.TickDurationSeconds.Observe(e.clk.Now().Sub(start).Seconds())
	}()

	snap, err := e.configStore.Load(ctx)
	if err != nil {
		e.log.Error("config load failed, aborting tick", zap.Error(err))
		return err
	}
	if err := e.stateStore.Load(); err != nil {
		e.log.Error("state load failed, aborting tick", zap.Error(err))
		return err
	}

	byAccount := groupJobsByAccount(snap.Jobs)

	g, gctx := errgroup.WithContext(ctx)
	for accountID, jobs := range byAccount {
		accountID, jobs := accountID, jobs
		g.Go(func() error {
			e.runAccount(gctx, snap, accountID, jobs)
			return nil
		})
	}
	// g.Wait's error is always nil: runAccount never returns a non-nil
	// error to the group, by design (a slow or failing account must not
	// cancel its siblings).
	_ = g.Wait()

	e.tickCount++
	if e.triggerEval != nil && e.tickCount%TriggerSubCadence == 0 {
		e.triggerEval.Evaluate(ctx, snap, e.clk.Now())
	}

	return nil
}

// Run owns the long-lived process loop: one tick every period, until ctx
// is cancelled. Each tick gets its own timeout of 5*period (spec §5); a
// tick that overruns it is abandoned (remaining jobs skipped) and the
// next tick still starts on schedule.
func (e *Engine) Run(ctx context.Context, period time.Duration) error {
	ticker := e.clk.NewTicker(period)
	defer ticker.Stop()

	tickTimeout := 5 * period
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
			if err := e.Tick(tickCtx); err != nil {
				e.log.Error("tick aborted", zap.Error(err))
			}
			cancel()
		}
	}
}

// groupJobsByAccount preserves configuration order within each account's
// slice, since jobs is already in document order.
func groupJobsByAccount(jobs []model.Job) map[string][]model.Job {
	out := map[string][]model.Job{}
	for _, j := range jobs {
		out[j.AccountID] = append(out[j.AccountID], j)
	}
	return out
}

// lockFor returns the chanLock serializing access to accountID, creating
// one on first use. Guarded by accountMuMu since distinct accounts' ticks
// run concurrently and each may be the first to touch this map.
func (e *Engine) lockFor(accountID string) chanLock {
	e.accountMuMu.Lock()
	defer e.accountMuMu.Unlock()
	l, ok := e.accountLocks[accountID]
	if !ok {
		l = newChanLock()
		e.accountLocks[accountID] = l
	}
	return l
}

func (e *Engine) runAccount(ctx context.Context, snap *config.Snapshot, accountID string, jobs []model.Job) {
	lock := e.lockFor(accountID)
	if err := lock.Lock(ctx); err != nil {
		return
	}
	defer lock.Unlock()

	acc, ok := snap.Accounts[accountID]
	if !ok {
		e.log.Error("job references unknown account", zap.String("account_id", accountID))
		return
	}
	client, err := provider.New(acc.Account, acc.ResolvedToken)
	if err != nil {
		e.log.Error("failed to build provider client", zap.String("account_id", accountID), zap.Error(err))
		return
	}

	now := e.clk.Now()
	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if !job.Enabled {
			continue
		}
		e.runJob(ctx, client, snap, job, now)
	}
}

func (e *Engine) runJob(ctx context.Context, client provider.Client, snap *config.Snapshot, job model.Job, now time.Time) {
	st := e.stateStore.JobState(job.ID)
	if !st.Due(now, job.IntervalMinutes) {
		metrics.JobsSkippedTotal.Inc()
		e.writeAudit(job.ID, now, audit.OutcomeSkipped, nil, nil, "not due")
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	plan, err := evaluator.Evaluate(reqCtx, client, job.ZoneID, job, st.Cursor)
	if err != nil {
		e.handleJobFailure(job, st, err)
		return
	}

	succeeded := make([]bool, len(plan.Updates))
	oldValues := make([]string, len(plan.Updates))
	newValues := make([]string, len(plan.Updates))
	var lastErr error
	for i, u := range plan.Updates {
		updCtx, updCancel := context.WithTimeout(ctx, RequestTimeout)
		rec, err := client.UpdateRecord(updCtx, job.ZoneID, u.RecordID, u.Value)
		updCancel()
		newValues[i] = u.Value
		if err != nil {
			lastErr = err
			e.log.Warn("record update failed",
				zap.String("job_id", job.ID), zap.String("record_id", u.RecordID), zap.Error(err))
			continue
		}
		succeeded[i] = true
		oldValues[i] = rec.Value
	}

	if plan.IsSuccess(succeeded) {
		e.recordSuccess(job, plan, now, oldValues, newValues)
		return
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no updates attempted")
	}
	e.handleJobFailure(job, st, lastErr)
}

func (e *Engine) recordSuccess(job model.Job, plan evaluator.Plan, now time.Time, oldValues, newValues []string) {
	newState := model.RotationState{
		LastFiredAt:         now,
		Cursor:              plan.SuccessCursor,
		ConsecutiveFailures: 0,
	}
	if err := e.stateStore.SetJobState(job.ID, newState); err != nil {
		e.log.Error("failed to persist job state after successful rotation",
			zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	metrics.RotationsTotal.WithLabelValues(string(job.Kind)).Inc()
	metrics.ConsecutiveFailures.WithLabelValues(job.ID).Set(0)
	e.log.Info("job rotated",
		zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)),
		zap.Strings("old_values", oldValues), zap.Strings("new_values", newValues))
	e.writeAudit(job.ID, now, audit.OutcomeSuccess, oldValues, newValues, "")
}

func (e *Engine) handleJobFailure(job model.Job, st model.RotationState, err error) {
	outcome := audit.OutcomeRetryable
	switch {
	case faults.FatalForTick(err):
		outcome = audit.OutcomeFatal
		metrics.JobsQuarantinedTotal.Inc()
		e.log.Error("job quarantined for this tick", zap.String("job_id", job.ID), zap.Error(err))
	case faults.Retryable(err):
		e.log.Warn("job failed, will retry next tick", zap.String("job_id", job.ID), zap.Error(err))
	default:
		e.log.Error("job failed with unclassified error", zap.String("job_id", job.ID), zap.Error(err))
	}

	var fe *faults.Error
	kind := "unknown"
	if errors.As(err, &fe) {
		kind = fe.Kind.String()
	}
	metrics.RotationFailuresTotal.WithLabelValues(string(job.Kind), kind).Inc()

	next := st
	next.ConsecutiveFailures = st.ConsecutiveFailures + 1
	if setErr := e.stateStore.SetJobState(job.ID, next); setErr != nil {
		e.log.Error("failed to persist failure bookkeeping", zap.String("job_id", job.ID), zap.Error(setErr))
	}
	metrics.ConsecutiveFailures.WithLabelValues(job.ID).Set(float64(next.ConsecutiveFailures))
	e.writeAudit(job.ID, e.clk.Now(), outcome, nil, nil, err.Error())
}

func (e *Engine) writeAudit(jobID string, firedAt time.Time, outcome audit.Outcome, oldValues, newValues []string, detail string) {
	if e.auditSink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()
	entry := audit.Entry{
		JobID: jobID, FiredAt: firedAt, Outcome: outcome,
		OldValues: oldValues, NewValues: newValues, ErrorDetail: detail,
	}
	if err := e.auditSink.Record(ctx, entry); err != nil {
		e.log.Warn("audit sink write failed", zap.String("job_id", jobID), zap.Error(err))
	}
}
