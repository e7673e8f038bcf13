package secretresolve

import (
	"context"
	"testing"
)

type fakeVault struct {
	values map[string]string
}

func (f *fakeVault) GetKV(ctx context.Context, path, field string) (string, error) {
	return f.values[path+"#"+field], nil
}

func TestResolve_Literal(t *testing.T) {
	r := New(nil)
	got, err := r.Resolve(context.Background(), "sk-literal-token")
	if err != nil {
		t.Fatal(err)
	}
	if got != "sk-literal-token" {
		t.Fatalf("got %q", got)
	}
}

func TestResolve_Env(t *testing.T) {
	t.Setenv("ROTATORD_TEST_TOKEN", "from-env")
	r := New(nil)
	got, err := r.Resolve(context.Background(), "env:ROTATORD_TEST_TOKEN")
	if err != nil {
		t.Fatal(err)
	}
	if got != "from-env" {
		t.Fatalf("got %q", got)
	}
}

func TestResolve_EnvMissingIsError(t *testing.T) {
	r := New(nil)
	if _, err := r.Resolve(context.Background(), "env:ROTATORD_DOES_NOT_EXIST"); err == nil {
		t.Fatal("expected error for unset env var")
	}
}

func TestResolve_Vault(t *testing.T) {
	fv := &fakeVault{values: map[string]string{"secret/accounts/acme#token": "vault-secret"}}
	r := New(fv)
	got, err := r.Resolve(context.Background(), "vault:secret/accounts/acme#token")
	if err != nil {
		t.Fatal(err)
	}
	if got != "vault-secret" {
		t.Fatalf("got %q", got)
	}
}

func TestResolve_VaultWithoutClientIsError(t *testing.T) {
	r := New(nil)
	if _, err := r.Resolve(context.Background(), "vault:secret/x#y"); err == nil {
		t.Fatal("expected error when no vault client is configured")
	}
}
