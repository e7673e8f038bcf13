// Package model defines the core entities of the rotation engine: the
// typed configuration document (Account, Zone, Job, Trigger, Agent) and
// the provider-facing Record/Zone views. Job is a sum type over the three
// rotation kinds so the evaluator never reinterprets an untyed payload.
package model

import "net"

// RecordType is the DNS record family the engine rotates.
type RecordType string

const (
	RecordTypeA    RecordType = "A"
	RecordTypeAAAA RecordType = "AAAA"
)

// Matches reports whether ip belongs to the address family the RecordType
// expects: IPv4 for A, IPv6 (and not IPv4) for AAAA.
func (t RecordType) Matches(ip net.IP) bool {
	switch t {
	case RecordTypeA:
		return ip.To4() != nil
	case RecordTypeAAAA:
		return ip.To4() == nil && ip.To16() != nil
	default:
		return false
	}
}

// ProviderKind names which concrete Provider implementation an Account
// authenticates against.
type ProviderKind string

const (
	ProviderCloudflare ProviderKind = "cloudflare"
	ProviderRoute53    ProviderKind = "route53"
)

// Account is a named credential bundle authorizing provider access.
type Account struct {
	ID       string       `yaml:"id" validate:"required"`
	Name     string       `yaml:"name" validate:"required"`
	Provider ProviderKind `yaml:"provider" validate:"required"`
	// Token is the raw form as persisted: a literal secret, "env:VAR", or
	// "vault:<kv-path>#<field>". Resolved once at load time; see
	// secretresolve. Never logged, never re-serialized in resolved form.
	Token string `yaml:"token" validate:"required"`
	// Region is consulted only by the route53 provider kind.
	Region string `yaml:"region,omitempty"`
}

// Zone is a DNS zone owned by an Account. The local document only caches a
// reference; existence is authoritative at the provider.
type Zone struct {
	ID        string `yaml:"id" validate:"required"`
	AccountID string `yaml:"account_id" validate:"required"`
	Name      string `yaml:"name" validate:"required"`
}

// Record is a live DNS A/AAAA record, read just-in-time from the provider.
// It is never persisted as a primary entity in the config document.
type Record struct {
	ID      string
	ZoneID  string
	Name    string
	Type    RecordType
	Value   string
	Proxied bool
	TTL     int64
}

// JobKind selects which rotation algorithm a Job runs.
type JobKind string

const (
	JobSingle    JobKind = "single"
	JobMultiPool JobKind = "multipool"
	JobShuffle   JobKind = "shuffle"
)

// Job is the unit of scheduled work. Exactly one of Single, MultiPool, or
// Shuffle is populated, selected by Kind — a sum type over the three
// rotation payload shapes so a Single job can never be evaluated with a
// Shuffle's fields by accident.
type Job struct {
	ID              string  `yaml:"id" validate:"required"`
	AccountID       string  `yaml:"account_id" validate:"required"`
	ZoneID          string  `yaml:"zone_id" validate:"required"`
	Kind            JobKind `yaml:"kind" validate:"required,oneof=single multipool shuffle"`
	IntervalMinutes int     `yaml:"interval_minutes" validate:"min=5"`
	Enabled         bool    `yaml:"enabled"`

	Single    *SinglePayload    `yaml:"single,omitempty"`
	MultiPool *MultiPoolPayload `yaml:"multipool,omitempty"`
	Shuffle   *ShufflePayload   `yaml:"shuffle,omitempty"`
}

// SinglePayload is the kind-specific data for a JobSingle job.
type SinglePayload struct {
	RecordID   string     `yaml:"record_id"`
	RecordType RecordType `yaml:"record_type"`
	IPPool     []string   `yaml:"ip_pool"`
}

// MultiPoolPayload is the kind-specific data for a JobMultiPool job.
type MultiPoolPayload struct {
	RecordIDs  []string   `yaml:"record_ids"`
	RecordType RecordType `yaml:"record_type"`
	IPPool     []string   `yaml:"ip_pool"`
}

// ShufflePayload is the kind-specific data for a JobShuffle job.
type ShufflePayload struct {
	RecordIDs []string `yaml:"record_ids"`
	Shift     int      `yaml:"shift"`
}

// TriggerWindow is the calendar interval a Trigger measures traffic over.
type TriggerWindow string

const (
	WindowDaily   TriggerWindow = "daily"
	WindowWeekly  TriggerWindow = "weekly"
	WindowMonthly TriggerWindow = "monthly"
)

// Trigger is an optional traffic-usage alert policy.
type Trigger struct {
	ID      string        `yaml:"id"`
	AgentID string        `yaml:"agent_id"`
	Window  TriggerWindow `yaml:"window"`
	LimitGB float64       `yaml:"limit_gb"`
	Label   string        `yaml:"label"`
}

// Agent is a registered traffic-measurement agent a Trigger polls.
type Agent struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}
