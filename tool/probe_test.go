package tool

import (
	"context"
	"fmt"
	"testing"
)

func TestProbe_FixedKeySet(t *testing.T) {
	caps := Probe(context.Background())

	names := CapabilityNames()
	if len(caps) != len(names) {
		t.Fatalf("Probe returned %d capabilities, want %d", len(caps), len(names))
	}
	for _, name := range names {
		if _, ok := caps[name]; !ok {
			t.Errorf("capability %q missing from probe result", name)
		}
	}
}

func TestProbe_SessionStorageAvailable(t *testing.T) {
	// Temp storage is a given anywhere tests run.
	caps := Probe(context.Background())
	if !caps[CapSessionStorage] {
		t.Error("session_storage should be available in the test environment")
	}
}

func TestRunProbe_ErrorMeansUnavailable(t *testing.T) {
	got := runProbe(context.Background(), func(context.Context) (bool, error) {
		return true, fmt.Errorf("probe exploded")
	})
	if got {
		t.Error("a failing probe must report unavailable")
	}
}

func TestRunProbe_PanicMeansUnavailable(t *testing.T) {
	got := runProbe(context.Background(), func(context.Context) (bool, error) {
		panic("host has no such concept")
	})
	if got {
		t.Error("a panicking probe must report unavailable")
	}
}
