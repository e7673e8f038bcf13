package config

import (
	"fmt"
	"net"

	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/model"
	"github.com/rotatord/rotatord/internal/provider"
)

// validate enforces spec §4.2's load-time invariants, rejecting the whole
// document on the first offending entity and naming it in the error.
func validate(doc *Document) error {
	accounts := map[string]model.Account{}
	for _, a := range doc.Accounts {
		if a.ID == "" {
			return configErr("account has empty id")
		}
		if _, dup := accounts[a.ID]; dup {
			return configErr("duplicate account id %q", a.ID)
		}
		if _, ok := provider.Registry[a.Provider]; !ok {
			return configErr("account %q: unknown provider %q", a.ID, a.Provider)
		}
		accounts[a.ID] = a
	}

	zones := map[string]model.Zone{}
	for _, z := range doc.Zones {
		if z.ID == "" {
			return configErr("zone has empty id")
		}
		if _, dup := zones[z.ID]; dup {
			return configErr("duplicate zone id %q", z.ID)
		}
		if _, ok := accounts[z.AccountID]; !ok {
			return configErr("zone %q references unknown account %q", z.ID, z.AccountID)
		}
		zones[z.ID] = z
	}

	agents := map[string]model.Agent{}
	for _, a := range doc.Agents {
		if a.ID == "" {
			return configErr("agent has empty id")
		}
		if _, dup := agents[a.ID]; dup {
			return configErr("duplicate agent id %q", a.ID)
		}
		agents[a.ID] = a
	}

	jobIDs := map[string]bool{}
	for _, j := range doc.Jobs {
		if j.ID == "" {
			return configErr("job has empty id")
		}
		if jobIDs[j.ID] {
			return configErr("duplicate job id %q", j.ID)
		}
		jobIDs[j.ID] = true

		if _, ok := accounts[j.AccountID]; !ok {
			return configErr("job %q references unknown account %q", j.ID, j.AccountID)
		}
		if _, ok := zones[j.ZoneID]; !ok {
			return configErr("job %q references unknown zone %q", j.ID, j.ZoneID)
		}
		if j.IntervalMinutes < 5 {
			return configErr("job %q: interval_minutes must be >= 5, got %d", j.ID, j.IntervalMinutes)
		}
		if err := validateJobKind(j); err != nil {
			return err
		}
	}

	for _, t := range doc.Triggers {
		if t.ID == "" {
			return configErr("trigger has empty id")
		}
		if _, ok := agents[t.AgentID]; !ok {
			return configErr("trigger %q references unknown agent %q", t.ID, t.AgentID)
		}
		switch t.Window {
		case model.WindowDaily, model.WindowWeekly, model.WindowMonthly:
		default:
			return configErr("trigger %q: invalid window %q", t.ID, t.Window)
		}
		if t.LimitGB <= 0 {
			return configErr("trigger %q: limit_gb must be positive", t.ID)
		}
	}

	return nil
}

func validateJobKind(j model.Job) error {
	switch j.Kind {
	case model.JobSingle:
		if j.Single == nil {
			return configErr("job %q: kind=single requires a single payload", j.ID)
		}
		if j.Single.RecordID == "" {
			return configErr("job %q: record_id is required", j.ID)
		}
		if err := validatePool(j.ID, j.Single.IPPool, j.Single.RecordType); err != nil {
			return err
		}
		if len(j.Single.IPPool) == 0 {
			return configErr("job %q: ip_pool must have at least one entry", j.ID)
		}
		if hasDuplicate(j.Single.IPPool) {
			return configErr("job %q: ip_pool must not contain duplicate entries (degenerate avoid-same-ip case)", j.ID)
		}

	case model.JobMultiPool:
		if j.MultiPool == nil {
			return configErr("job %q: kind=multipool requires a multipool payload", j.ID)
		}
		if len(j.MultiPool.RecordIDs) == 0 {
			return configErr("job %q: record_ids must be non-empty", j.ID)
		}
		if err := validatePool(j.ID, j.MultiPool.IPPool, j.MultiPool.RecordType); err != nil {
			return err
		}
		if len(j.MultiPool.IPPool) < len(j.MultiPool.RecordIDs) {
			return configErr("job %q: ip_pool must have at least as many entries as record_ids", j.ID)
		}

	case model.JobShuffle:
		if j.Shuffle == nil {
			return configErr("job %q: kind=shuffle requires a shuffle payload", j.ID)
		}
		if len(j.Shuffle.RecordIDs) < 2 {
			return configErr("job %q: shuffle requires at least 2 record_ids", j.ID)
		}
		shift := j.Shuffle.Shift
		if shift == 0 {
			shift = 1
		}
		if shift < 1 || shift >= len(j.Shuffle.RecordIDs) {
			return configErr("job %q: shift must satisfy 1 <= shift < len(record_ids)", j.ID)
		}

	default:
		return configErr("job %q: unknown kind %q", j.ID, j.Kind)
	}
	return nil
}

// validatePool enforces spec §4.5 "common edge case": every pool entry
// must parse as an IP address of the family the declared record type
// expects, so the engine never discovers a family mismatch at runtime.
func validatePool(jobID string, pool []string, recordType model.RecordType) error {
	switch recordType {
	case model.RecordTypeA, model.RecordTypeAAAA:
	default:
		return configErr("job %q: invalid record_type %q", jobID, recordType)
	}
	for _, entry := range pool {
		ip := net.ParseIP(entry)
		if ip == nil {
			return configErr("job %q: ip_pool entry %q is not a valid IP address", jobID, entry)
		}
		if !recordType.Matches(ip) {
			return configErr("job %q: ip_pool entry %q does not match record_type %q", jobID, entry, recordType)
		}
	}
	return nil
}

func hasDuplicate(pool []string) bool {
	seen := map[string]bool{}
	for _, p := range pool {
		if seen[p] {
			return true
		}
		seen[p] = true
	}
	return false
}

func configErr(format string, args ...any) error {
	return faults.New(faults.KindConfig, "validate", fmt.Errorf(format, args...))
}
