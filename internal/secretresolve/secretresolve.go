// Package secretresolve turns an Account's persisted token field -- a
// literal, an "env:VAR" reference, or a "vault:<path>#<field>" reference
// -- into a plain in-memory secret, once, at config load. The resolved
// value is never written back to the config document and the caller is
// responsible for never logging it (spec §7: "the engine never prints
// provider secrets").
package secretresolve

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
)

// VaultReader is the subset of the Vault API this package needs, so tests
// can inject a fake without talking to a real Vault server.
type VaultReader interface {
	GetKV(ctx context.Context, path, field string) (string, error)
}

// Resolver resolves Account.Token strings against the process environment
// and, optionally, a Vault KV backend.
type Resolver struct {
	vault VaultReader
}

// New builds a Resolver. vault may be nil -- resolving a "vault:" token
// without one configured is a config fault.
func New(vault VaultReader) *Resolver {
	return &Resolver{vault: vault}
}

// Resolve turns the raw token form into a plain secret.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	switch {
	case strings.HasPrefix(raw, "env:"):
		name := strings.TrimPrefix(raw, "env:")
		val := os.Getenv(name)
		if val == "" {
			return "", fmt.Errorf("env var %q is unset or empty", name)
		}
		return val, nil

	case strings.HasPrefix(raw, "vault:"):
		if r.vault == nil {
			return "", fmt.Errorf("token references vault but no vault client is configured")
		}
		ref := strings.TrimPrefix(raw, "vault:")
		path, field, ok := cutLast(ref, '#')
		if !ok {
			return "", fmt.Errorf("malformed vault reference %q, want \"path#field\"", ref)
		}
		return r.vault.GetKV(ctx, path, field)

	default:
		return raw, nil
	}
}

func cutLast(s string, sep byte) (before, after string, ok bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// VaultClient is a thin wrapper around the HashiCorp Vault SDK's KV-v2
// helpers with per-key caching, so repeated resolution of the same path
// within a short window (e.g. across tick reloads) doesn't hit Vault every
// time.
type VaultClient struct {
	api   *vaultapi.Client
	cache map[string]cachedSecret
	ttl   time.Duration
}

type cachedSecret struct {
	val string
	exp time.Time
}

// NewVaultClient constructs a VaultClient from ambient VAULT_ADDR /
// VAULT_TOKEN environment configuration.
func NewVaultClient(ttl time.Duration) (*VaultClient, error) {
	cfg := vaultapi.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env config: %w", err)
	}
	api, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}
	return &VaultClient{api: api, cache: make(map[string]cachedSecret), ttl: ttl}, nil
}

func (v *VaultClient) GetKV(ctx context.Context, path, field string) (string, error) {
	key := path + "#" + field
	if v.ttl > 0 {
		if c, ok := v.cache[key]; ok && time.Now().Before(c.exp) {
			return c.val, nil
		}
	}

	mount, rel := splitMount(path)
	secret, err := v.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", path, err)
	}

	raw, ok := secret.Data[field]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", field, path)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", path, field)
	}

	if v.ttl > 0 {
		v.cache[key] = cachedSecret{val: val, exp: time.Now().Add(v.ttl)}
	}
	return val, nil
}

// splitMount separates the KV mount from the secret's relative path, e.g.
// "secret/rotatord/accounts/acme" -> ("secret", "rotatord/accounts/acme").
func splitMount(path string) (mount, rel string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}
