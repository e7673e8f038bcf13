// Package provider defines the abstract DNS-backend interface the engine
// consumes (spec §4.1) and its concrete implementations. All operations
// are synchronous from the caller's view but may block on network I/O.
// Implementations never retry and never log -- those policies live in the
// engine, driven by the classified errors in internal/faults.
package provider

import (
	"context"

	"github.com/rotatord/rotatord/internal/model"
)

// Client is the uniform interface every DNS backend satisfies.
type Client interface {
	ListZones(ctx context.Context) ([]model.Zone, error)

	// ListRecords returns the full set of records in zoneID, paginating
	// internally if the backend pages. typeFilter, if non-empty, restricts
	// the result to that record type.
	ListRecords(ctx context.Context, zoneID string, typeFilter model.RecordType) ([]model.Record, error)

	GetRecord(ctx context.Context, zoneID, recordID string) (model.Record, error)

	// UpdateRecord performs a conditional update of the record's value,
	// preserving type, name, proxied, and TTL. On failure it returns a
	// *faults.Error with the record-scope, auth, or transient kind set.
	UpdateRecord(ctx context.Context, zoneID, recordID, newValue string) (model.Record, error)

	// VerifyToken checks that the account's credential is valid. The
	// Cloudflare and Route53 clients report validity only: both always
	// return a nil missingPermissions list.
	VerifyToken(ctx context.Context) (valid bool, missingPermissions []string, err error)
}

// Factory builds a Client for an Account whose secret token has already
// been resolved (see internal/secretresolve) to a plain string.
type Factory func(account model.Account, resolvedToken string) (Client, error)

// Registry maps a model.ProviderKind to the Factory that constructs it.
var Registry = map[model.ProviderKind]Factory{}

// Register adds a provider factory to the registry. Called from each
// provider implementation's init.
func Register(kind model.ProviderKind, f Factory) {
	Registry[kind] = f
}

// New builds a Client for the given account using its resolved token.
func New(account model.Account, resolvedToken string) (Client, error) {
	f, ok := Registry[account.Provider]
	if !ok {
		return nil, NewUnknownProviderError(account.Provider)
	}
	return f(account, resolvedToken)
}
