package audit

import "testing"

// These exercise the hand-rolled Postgres array literal encoding only.
// Record itself needs a live Postgres instance and isn't covered here.

func TestPqStringArray_Empty(t *testing.T) {
	if got := pqStringArray(nil); got != "{}" {
		t.Fatalf("pqStringArray(nil) = %q, want {}", got)
	}
	if got := pqStringArray([]string{}); got != "{}" {
		t.Fatalf("pqStringArray([]) = %q, want {}", got)
	}
}

func TestPqStringArray_Values(t *testing.T) {
	got := pqStringArray([]string{"203.0.113.1", "203.0.113.2"})
	want := `{"203.0.113.1","203.0.113.2"}`
	if got != want {
		t.Fatalf("pqStringArray = %q, want %q", got, want)
	}
}

func TestPqStringArray_EscapesQuotesAndBackslashes(t *testing.T) {
	got := pqStringArray([]string{`has"quote`, `has\backslash`})
	want := `{"has\"quote","has\\backslash"}`
	if got != want {
		t.Fatalf("pqStringArray = %q, want %q", got, want)
	}
}

func TestEscapeArrayElem(t *testing.T) {
	cases := map[string]string{
		"plain":        "plain",
		`a"b`:          `a\"b`,
		`a\b`:          `a\\b`,
		`a\"b`:         `a\\\"b`,
	}
	for in, want := range cases {
		if got := escapeArrayElem(in); got != want {
			t.Errorf("escapeArrayElem(%q) = %q, want %q", in, got, want)
		}
	}
}
