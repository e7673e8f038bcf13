package evaluator

import (
	"context"
	"testing"

	"github.com/rotatord/rotatord/internal/model"
)

type fakeClient struct {
	records map[string]model.Record
}

func (f *fakeClient) ListZones(ctx context.Context) ([]model.Zone, error) { return nil, nil }

func (f *fakeClient) ListRecords(ctx context.Context, zoneID string, typeFilter model.RecordType) ([]model.Record, error) {
	return nil, nil
}

func (f *fakeClient) GetRecord(ctx context.Context, zoneID, recordID string) (model.Record, error) {
	rec, ok := f.records[recordID]
	if !ok {
		return model.Record{}, errNotFound{recordID}
	}
	return rec, nil
}

func (f *fakeClient) UpdateRecord(ctx context.Context, zoneID, recordID, newValue string) (model.Record, error) {
	rec := f.records[recordID]
	rec.Value = newValue
	f.records[recordID] = rec
	return rec, nil
}

func (f *fakeClient) VerifyToken(ctx context.Context) (bool, []string, error) { return true, nil, nil }

type errNotFound struct{ id string }

func (e errNotFound) Error() string { return "record not found: " + e.id }

func TestEvaluateSingle_ProducesOneUpdate(t *testing.T) {
	client := &fakeClient{records: map[string]model.Record{
		"recA": {ID: "recA", Value: "10.0.0.1"},
	}}
	job := model.Job{
		Kind: model.JobSingle,
		Single: &model.SinglePayload{
			RecordID:   "recA",
			RecordType: model.RecordTypeA,
			IPPool:     []string{"10.0.0.1", "10.0.0.2"},
		},
	}

	plan, err := Evaluate(context.Background(), client, "zone1", job, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Updates) != 1 || plan.Updates[0].Value == "10.0.0.1" {
		t.Fatalf("expected a single update away from the live value, got %+v", plan.Updates)
	}
	if !plan.RequireAll {
		t.Fatal("single jobs must require all updates to succeed")
	}
	if !plan.IsSuccess([]bool{true}) {
		t.Fatal("expected success when the sole update succeeds")
	}
	if plan.IsSuccess([]bool{false}) {
		t.Fatal("expected failure when the sole update fails")
	}
}

func TestEvaluateSingle_MissingRecordIsError(t *testing.T) {
	client := &fakeClient{records: map[string]model.Record{}}
	job := model.Job{
		Kind: model.JobSingle,
		Single: &model.SinglePayload{
			RecordID: "missing",
			IPPool:   []string{"10.0.0.1", "10.0.0.2"},
		},
	}
	if _, err := Evaluate(context.Background(), client, "zone1", job, 0); err == nil {
		t.Fatal("expected error for missing record")
	}
}

func TestEvaluateMultiPool_AnySucceedAdvancesCursor(t *testing.T) {
	client := &fakeClient{records: map[string]model.Record{
		"rec1": {ID: "rec1", Value: "10.0.0.1"},
		"rec2": {ID: "rec2", Value: "10.0.0.2"},
	}}
	job := model.Job{
		Kind: model.JobMultiPool,
		MultiPool: &model.MultiPoolPayload{
			RecordIDs: []string{"rec1", "rec2"},
			IPPool:    []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		},
	}

	plan, err := Evaluate(context.Background(), client, "zone1", job, 0)
	if err != nil {
		t.Fatal(err)
	}
	if plan.RequireAll {
		t.Fatal("multipool jobs must not require all updates to succeed")
	}
	if !plan.IsSuccess([]bool{true, false}) {
		t.Fatal("expected success when at least one update succeeds")
	}
	if plan.IsSuccess([]bool{false, false}) {
		t.Fatal("expected failure when every update fails")
	}
	if plan.SuccessCursor == plan.Cursor {
		t.Fatal("expected SuccessCursor to advance past the unchanged Cursor")
	}
}

func TestEvaluateMultiPool_MissingRecordIsError(t *testing.T) {
	client := &fakeClient{records: map[string]model.Record{
		"rec1": {ID: "rec1", Value: "10.0.0.1"},
	}}
	job := model.Job{
		Kind: model.JobMultiPool,
		MultiPool: &model.MultiPoolPayload{
			RecordIDs: []string{"rec1", "rec2"},
			IPPool:    []string{"10.0.0.1", "10.0.0.2"},
		},
	}
	if _, err := Evaluate(context.Background(), client, "zone1", job, 0); err == nil {
		t.Fatal("expected error when any referenced record is missing")
	}
}

func TestEvaluateShuffle_ShiftsAcrossRecords(t *testing.T) {
	client := &fakeClient{records: map[string]model.Record{
		"rec1": {ID: "rec1", Value: "10.0.0.1"},
		"rec2": {ID: "rec2", Value: "10.0.0.2"},
		"rec3": {ID: "rec3", Value: "10.0.0.3"},
	}}
	job := model.Job{
		Kind: model.JobShuffle,
		Shuffle: &model.ShufflePayload{
			RecordIDs: []string{"rec1", "rec2", "rec3"},
			Shift:     1,
		},
	}

	plan, err := Evaluate(context.Background(), client, "zone1", job, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(plan.Updates))
	}
	if plan.Updates[0].Value != "10.0.0.2" {
		t.Fatalf("rec1 should take rec2's value under shift 1, got %s", plan.Updates[0].Value)
	}
	if !plan.RequireAll {
		t.Fatal("shuffle jobs must require all updates to succeed")
	}
}

func TestEvaluateShuffle_DefaultsShiftToOne(t *testing.T) {
	client := &fakeClient{records: map[string]model.Record{
		"rec1": {ID: "rec1", Value: "10.0.0.1"},
		"rec2": {ID: "rec2", Value: "10.0.0.2"},
	}}
	job := model.Job{
		Kind: model.JobShuffle,
		Shuffle: &model.ShufflePayload{
			RecordIDs: []string{"rec1", "rec2"},
		},
	}
	plan, err := Evaluate(context.Background(), client, "zone1", job, 0)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Updates[0].Value != "10.0.0.2" || plan.Updates[1].Value != "10.0.0.1" {
		t.Fatalf("expected shift=1 default, got %+v", plan.Updates)
	}
}

func TestEvaluate_UnknownKindIsError(t *testing.T) {
	client := &fakeClient{records: map[string]model.Record{}}
	job := model.Job{Kind: model.JobKind("bogus")}
	if _, err := Evaluate(context.Background(), client, "zone1", job, 0); err == nil {
		t.Fatal("expected error for unknown job kind")
	}
}
