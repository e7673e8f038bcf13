package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/model"

	_ "github.com/rotatord/rotatord/internal/provider" // registers provider kinds
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
accounts:
  - id: acct1
    name: Primary
    provider: cloudflare
    token: literal-token
zones:
  - id: zone1
    account_id: acct1
    name: example.com
jobs:
  - id: job1
    account_id: acct1
    zone_id: zone1
    kind: single
    interval_minutes: 5
    enabled: true
    single:
      record_id: rec1
      record_type: A
      ip_pool: ["1.1.1.1", "2.2.2.2"]
`

func TestLoad_Valid(t *testing.T) {
	path := writeTempConfig(t, validConfig)
	store := New(path, nil)
	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(snap.Jobs))
	}
	acc, ok := snap.Accounts["acct1"]
	if !ok || acc.ResolvedToken != "literal-token" {
		t.Fatalf("account not resolved correctly: %+v", acc)
	}
}

func TestLoad_RejectsUnknownZoneReference(t *testing.T) {
	path := writeTempConfig(t, `
accounts:
  - {id: acct1, name: Primary, provider: cloudflare, token: t}
zones: []
jobs:
  - id: job1
    account_id: acct1
    zone_id: does-not-exist
    kind: single
    interval_minutes: 5
    enabled: true
    single: {record_id: rec1, record_type: A, ip_pool: ["1.1.1.1","2.2.2.2"]}
`)
	_, err := New(path, nil).Load(context.Background())
	if err == nil {
		t.Fatal("expected validation error")
	}
	var fe *faults.Error
	if !errors.As(err, &fe) || fe.Kind != faults.KindConfig {
		t.Fatalf("expected KindConfig, got %v", err)
	}
}

func TestLoad_RejectsIntervalBelowFiveMinutes(t *testing.T) {
	path := writeTempConfig(t, `
accounts:
  - {id: acct1, name: Primary, provider: cloudflare, token: t}
zones:
  - {id: zone1, account_id: acct1, name: example.com}
jobs:
  - id: job1
    account_id: acct1
    zone_id: zone1
    kind: single
    interval_minutes: 1
    enabled: true
    single: {record_id: rec1, record_type: A, ip_pool: ["1.1.1.1","2.2.2.2"]}
`)
	if _, err := New(path, nil).Load(context.Background()); err == nil {
		t.Fatal("expected interval validation error")
	}
}

func TestLoad_RejectsDuplicateIPPoolForSingle(t *testing.T) {
	path := writeTempConfig(t, `
accounts:
  - {id: acct1, name: Primary, provider: cloudflare, token: t}
zones:
  - {id: zone1, account_id: acct1, name: example.com}
jobs:
  - id: job1
    account_id: acct1
    zone_id: zone1
    kind: single
    interval_minutes: 5
    enabled: true
    single: {record_id: rec1, record_type: A, ip_pool: ["1.1.1.1","1.1.1.1"]}
`)
	if _, err := New(path, nil).Load(context.Background()); err == nil {
		t.Fatal("expected duplicate ip_pool validation error")
	}
}

func TestLoad_RejectsFamilyMismatch(t *testing.T) {
	path := writeTempConfig(t, `
accounts:
  - {id: acct1, name: Primary, provider: cloudflare, token: t}
zones:
  - {id: zone1, account_id: acct1, name: example.com}
jobs:
  - id: job1
    account_id: acct1
    zone_id: zone1
    kind: single
    interval_minutes: 5
    enabled: true
    single: {record_id: rec1, record_type: AAAA, ip_pool: ["1.1.1.1","2.2.2.2"]}
`)
	if _, err := New(path, nil).Load(context.Background()); err == nil {
		t.Fatal("expected record-type family mismatch error")
	}
}

func TestSave_WriteToTempAndRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	doc := &Document{
		Accounts: []model.Account{{ID: "a1", Name: "A", Provider: model.ProviderCloudflare, Token: "tok"}},
	}
	if err := Save(path, doc); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file after save (no leftover temp), got %v", entries)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config.yaml to exist: %v", err)
	}
}

func TestSave_RefusesUnwritableDirectory(t *testing.T) {
	if err := Save("/nonexistent-dir-xyz/config.yaml", &Document{}); err == nil {
		t.Fatal("expected error for nonexistent directory")
	}
}
