package main

import (
	"errors"
	"testing"
)

func TestResolvePasswordKeepsFlagVerbatim(t *testing.T) {
	prompt := func() ([]byte, error) {
		t.Fatalf("prompt must not run when the flag is set")
		return nil, nil
	}
	got, err := resolvePassword("  spaced secret ", prompt)
	if err != nil {
		t.Fatalf("resolvePassword: %v", err)
	}
	if got != "  spaced secret " {
		t.Fatalf("password was altered: %q", got)
	}
}

func TestResolvePasswordPromptsWhenBlank(t *testing.T) {
	got, err := resolvePassword("   ", func() ([]byte, error) { return []byte(" typed "), nil })
	if err != nil {
		t.Fatalf("resolvePassword: %v", err)
	}
	if got != " typed " {
		t.Fatalf("unexpected prompted password %q", got)
	}

	if _, err := resolvePassword("", func() ([]byte, error) { return nil, errors.New("not a terminal") }); err == nil {
		t.Fatalf("expected prompt failure to surface")
	}
}
