// Package state implements the Rotation-State Store of spec §4.3: durable,
// crash-safe persistence of per-job last-fired timestamps and cursors, and
// per-trigger firing markers. Missing state for a job or trigger is never
// an error -- it is the documented "never fired" default.
package state

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/model"
)

// Store caches the state document in memory across ticks; every mutation
// goes through save (write-to-temp + fsync + rename), same discipline as
// the Config Store, so a reader never observes a torn document (P8).
type Store struct {
	path string

	mu  sync.Mutex
	doc Document
}

// New constructs a Store bound to path without reading it. Call Load before
// reading state; the engine calls it at the start of every tick.
func New(path string) *Store {
	return &Store{path: path, doc: Document{
		Jobs:     map[string]model.RotationState{},
		Triggers: map[string]model.TriggerState{},
	}}
}

// Load reads the state file into the in-memory cache. A missing file is
// treated as empty state, not an error; a present-but-corrupt file is a
// *faults.Error of KindState, fatal per spec §7 kind 2.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.doc = Document{Jobs: map[string]model.RotationState{}, Triggers: map[string]model.TriggerState{}}
			return nil
		}
		return faults.New(faults.KindState, "load", fmt.Errorf("read %s: %w", s.path, err))
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return faults.New(faults.KindState, "load", fmt.Errorf("parse %s: %w", s.path, err))
	}
	if doc.Jobs == nil {
		doc.Jobs = map[string]model.RotationState{}
	}
	if doc.Triggers == nil {
		doc.Triggers = map[string]model.TriggerState{}
	}
	s.doc = doc
	return nil
}

// JobState returns the job's RotationState, or the never-fired default if
// no entry exists.
func (s *Store) JobState(jobID string) model.RotationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Jobs[jobID]
}

// TriggerState returns the trigger's TriggerState, or the zero value
// (empty last_fired_period) if no entry exists.
func (s *Store) TriggerState(triggerID string) model.TriggerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Triggers[triggerID]
}

// SetJobState updates one job's state and persists the whole document
// durably. Called once per successful (or failed, for ConsecutiveFailures
// bookkeeping) rotation attempt that the engine decides should be recorded.
func (s *Store) SetJobState(jobID string, st model.RotationState) error {
	s.mu.Lock()
	s.doc.Jobs[jobID] = st
	doc := s.cloneLocked()
	s.mu.Unlock()
	return s.save(doc)
}

// SetTriggerState updates one trigger's firing marker and persists.
func (s *Store) SetTriggerState(triggerID string, st model.TriggerState) error {
	s.mu.Lock()
	s.doc.Triggers[triggerID] = st
	doc := s.cloneLocked()
	s.mu.Unlock()
	return s.save(doc)
}

func (s *Store) cloneLocked() Document {
	out := Document{
		Jobs:     make(map[string]model.RotationState, len(s.doc.Jobs)),
		Triggers: make(map[string]model.TriggerState, len(s.doc.Triggers)),
	}
	for k, v := range s.doc.Jobs {
		out.Jobs[k] = v
	}
	for k, v := range s.doc.Triggers {
		out.Triggers[k] = v
	}
	return out
}

func (s *Store) save(doc Document) error {
	dir := filepath.Dir(s.path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return faults.New(faults.KindState, "save", fmt.Errorf("directory %s does not exist", dir))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(&doc); err != nil {
		return faults.New(faults.KindState, "save", fmt.Errorf("marshal: %w", err))
	}
	enc.Close()

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return faults.New(faults.KindState, "save", fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return faults.New(faults.KindState, "save", fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return faults.New(faults.KindState, "save", fmt.Errorf("fsync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return faults.New(faults.KindState, "save", fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return faults.New(faults.KindState, "save", fmt.Errorf("rename into place: %w", err))
	}
	return nil
}
