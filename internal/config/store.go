// Package config implements the Config Store of spec §4.2: loading,
// validating, and persisting the operator's configuration document, with
// write-to-temp + fsync + rename durability and account-token resolution.
package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/model"
	"github.com/rotatord/rotatord/internal/secretresolve"
)

var fieldValidator = validator.New()

// Store owns the path to the on-disk document and the token resolver. It
// keeps no snapshot between loads: each Load returns a fresh one. The
// engine loads once per tick; within a tick the snapshot is immutable
// (spec §5).
type Store struct {
	path     string
	resolver *secretresolve.Resolver
}

// New constructs a Store bound to path. resolver may be nil; the store then
// resolves literal and "env:" tokens, and a "vault:" token fails to load.
func New(path string, resolver *secretresolve.Resolver) *Store {
	if resolver == nil {
		resolver = secretresolve.New(nil)
	}
	return &Store{path: path, resolver: resolver}
}

// Snapshot is an immutable, validated view of the configuration with
// account tokens already resolved to plain secrets.
type Snapshot struct {
	Accounts map[string]ResolvedAccount
	Zones    map[string]model.Zone
	Jobs     []model.Job
	Triggers []model.Trigger
	Agents   map[string]model.Agent
}

// ResolvedAccount is a model.Account with Token replaced by its resolved
// plain-secret form.
type ResolvedAccount struct {
	model.Account
	ResolvedToken string
}

// Load parses, field-validates, semantically validates (spec §4.2 steps
// 1-3), and resolves account secrets. Any failure is a *faults.Error of
// KindConfig naming the first offending entity, and is fatal at startup
// per spec §4.4 step 1 / §7 kind 1.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, faults.New(faults.KindConfig, "load", fmt.Errorf("read %s: %w", s.path, err))
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, faults.New(faults.KindConfig, "load", fmt.Errorf("parse %s: %w", s.path, err))
	}

	if err := fieldValidator.Struct(&doc); err != nil {
		return nil, faults.New(faults.KindConfig, "load", err)
	}

	if err := validate(&doc); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Accounts: make(map[string]ResolvedAccount, len(doc.Accounts)),
		Zones:    make(map[string]model.Zone, len(doc.Zones)),
		Jobs:     doc.Jobs,
		Triggers: doc.Triggers,
		Agents:   make(map[string]model.Agent, len(doc.Agents)),
	}
	for _, z := range doc.Zones {
		snap.Zones[z.ID] = z
	}
	for _, a := range doc.Agents {
		snap.Agents[a.ID] = a
	}
	for _, acc := range doc.Accounts {
		token, err := s.resolver.Resolve(ctx, acc.Token)
		if err != nil {
			return nil, faults.New(faults.KindConfig, "load", fmt.Errorf("account %q: resolve token: %w", acc.ID, err))
		}
		snap.Accounts[acc.ID] = ResolvedAccount{Account: acc, ResolvedToken: token}
	}

	return snap, nil
}

// Save persists doc with write-to-temp + fsync + rename, per spec §4.2's
// durability discipline. It refuses to create the file if the containing
// directory is not writable by the caller (fail loudly on mis-install).
func Save(path string, doc *Document) error {
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return faults.New(faults.KindConfig, "save", fmt.Errorf("directory %s does not exist", dir))
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return faults.New(faults.KindConfig, "save", fmt.Errorf("marshal: %w", err))
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return faults.New(faults.KindConfig, "save", fmt.Errorf("create temp file: %w (is %s writable?)", err, dir))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return faults.New(faults.KindConfig, "save", fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return faults.New(faults.KindConfig, "save", fmt.Errorf("fsync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return faults.New(faults.KindConfig, "save", fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return faults.New(faults.KindConfig, "save", fmt.Errorf("rename into place: %w", err))
	}
	return nil
}
