package trigger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotatord/rotatord/internal/config"
	"github.com/rotatord/rotatord/internal/model"
	"github.com/rotatord/rotatord/internal/state"
)

type fakeAgentClient struct {
	usage map[string]Usage
}

func (f *fakeAgentClient) FetchUsage(ctx context.Context, agent model.Agent) (Usage, error) {
	return f.usage[agent.ID], nil
}

func newTestState(t *testing.T) *state.Store {
	t.Helper()
	dir := t.TempDir()
	s := state.New(filepath.Join(dir, "state.yaml"))
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	return s
}

func baseSnapshot() *config.Snapshot {
	return &config.Snapshot{
		Agents: map[string]model.Agent{
			"agent1": {ID: "agent1", BaseURL: "http://agent1"},
		},
		Triggers: []model.Trigger{
			{ID: "trig1", AgentID: "agent1", Window: model.WindowDaily, LimitGB: 10},
		},
	}
}

func TestEvaluate_FiresOncePerPeriod(t *testing.T) {
	client := &fakeAgentClient{usage: map[string]Usage{
		"agent1": {RxBytesToday: 20 << 30, PeriodDaily: "2026-08-03"},
	}}
	st := newTestState(t)
	ev := New(client, st, nil)
	snap := baseSnapshot()

	ev.Evaluate(context.Background(), snap, time.Now())
	got := st.TriggerState("trig1")
	if got.LastFiredPeriod != "2026-08-03" {
		t.Fatalf("expected alert to record the period, got %+v", got)
	}

	// A second evaluation within the same period must not re-fire (the
	// only observable effect here is that the state doesn't change).
	ev.Evaluate(context.Background(), snap, time.Now())
	got2 := st.TriggerState("trig1")
	if got2.LastFiredPeriod != got.LastFiredPeriod {
		t.Fatalf("expected no change on repeated evaluation within the same period")
	}
}

func TestEvaluate_BelowLimitDoesNotFire(t *testing.T) {
	client := &fakeAgentClient{usage: map[string]Usage{
		"agent1": {RxBytesToday: 1 << 30, PeriodDaily: "2026-08-03"},
	}}
	st := newTestState(t)
	ev := New(client, st, nil)

	ev.Evaluate(context.Background(), baseSnapshot(), time.Now())
	got := st.TriggerState("trig1")
	if got.LastFiredPeriod != "" {
		t.Fatalf("expected no alert below the limit, got %+v", got)
	}
}

func TestEvaluate_NewPeriodCanFireAgain(t *testing.T) {
	client := &fakeAgentClient{usage: map[string]Usage{
		"agent1": {RxBytesToday: 20 << 30, PeriodDaily: "2026-08-03"},
	}}
	st := newTestState(t)
	ev := New(client, st, nil)
	snap := baseSnapshot()

	ev.Evaluate(context.Background(), snap, time.Now())

	client.usage["agent1"] = Usage{RxBytesToday: 20 << 30, PeriodDaily: "2026-08-04"}
	ev.Evaluate(context.Background(), snap, time.Now())

	got := st.TriggerState("trig1")
	if got.LastFiredPeriod != "2026-08-04" {
		t.Fatalf("expected alert to fire again in the new period, got %+v", got)
	}
}

func TestEvaluate_UnknownAgentIsSkipped(t *testing.T) {
	client := &fakeAgentClient{usage: map[string]Usage{}}
	st := newTestState(t)
	ev := New(client, st, nil)
	snap := &config.Snapshot{
		Agents: map[string]model.Agent{},
		Triggers: []model.Trigger{
			{ID: "trig1", AgentID: "does-not-exist", Window: model.WindowDaily, LimitGB: 1},
		},
	}
	ev.Evaluate(context.Background(), snap, time.Now())
	if st.TriggerState("trig1").LastFiredPeriod != "" {
		t.Fatal("expected no state change for a trigger referencing an unknown agent")
	}
}
