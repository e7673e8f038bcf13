// Package faults implements the error taxonomy of the rotation engine: a
// closed set of kinds every provider- or store-facing error is classified
// into before any retry-or-surface decision is made. Algorithms and
// provider clients never retry or log; classification and recovery policy
// live here and at the engine boundary, per the exceptional-control-flow
// rearchitecture this system requires.
package faults

import (
	"errors"
	"fmt"
)

// Kind is one of the five error kinds the engine reasons about.
type Kind int

const (
	// KindConfig: malformed document or failed validation. Fatal at load.
	KindConfig Kind = iota
	// KindState: state file unreadable or corrupt (absent is not this kind).
	KindState
	// KindAuth: provider token invalid or missing a required permission.
	KindAuth
	// KindRecordScope: the specific record/zone cannot be updated.
	KindRecordScope
	// KindTransient: 5xx, timeout, connection reset.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindState:
		return "state"
	case KindAuth:
		return "auth"
	case KindRecordScope:
		return "record_scope"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a classified failure carrying its Kind alongside the usual
// wrapped cause, plus enough detail to satisfy the "structured log entry
// naming the record" requirement for record-scope faults.
type Error struct {
	Kind    Kind
	Op      string // e.g. "update_record", "list_zones"
	ZoneID  string
	RecordID string
	Err     error
}

func (e *Error) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("%s: %s (zone=%s record=%s): %v", e.Kind, e.Op, e.ZoneID, e.RecordID, e.Err)
	}
	if e.ZoneID != "" {
		return fmt.Sprintf("%s: %s (zone=%s): %v", e.Kind, e.Op, e.ZoneID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithRecord attaches zone/record identifiers for record-scope faults.
func (e *Error) WithRecord(zoneID, recordID string) *Error {
	e.ZoneID = zoneID
	e.RecordID = recordID
	return e
}

// Retryable reports whether the engine should leave job state untouched
// and simply retry on the next tick (kind 4 and 5 in spec §7): transient
// provider faults and record-scope faults are both next-tick retries, the
// difference is only in logging severity and in whether the job is
// quarantined for the remainder of the current tick.
func Retryable(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == KindTransient || fe.Kind == KindRecordScope
}

// FatalForTick reports whether the job should be quarantined for the rest
// of the current evaluation cycle without being retried within it.
func FatalForTick(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == KindRecordScope || fe.Kind == KindAuth
}
