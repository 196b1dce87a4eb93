package testutil

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLogger_NotNil(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestObservedLogger_Captures(t *testing.T) {
	l, logs := ObservedLogger(zap.NewAtomicLevelAt(zap.WarnLevel))
	l.Info("dropped")
	l.Warn("kept")
	if got := logs.Len(); got != 1 {
		t.Fatalf("logs.Len() = %d, want 1", got)
	}
}

func TestNewStore_Usable(t *testing.T) {
	db := NewStore(t)
	if db == nil {
		t.Fatal("expected non-nil store")
	}
	if err := db.DB().PingContext(context.Background()); err != nil {
		t.Fatalf("PingContext: %v", err)
	}
}

func TestHash(t *testing.T) {
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := Hash("hello"); got != want {
		t.Errorf("Hash(hello) = %q, want %q", got, want)
	}
}

func TestHashes_Distinct(t *testing.T) {
	hs := Hashes(25)
	seen := make(map[string]bool, len(hs))
	for _, h := range hs {
		if seen[h] {
			t.Fatalf("duplicate hash %q", h)
		}
		seen[h] = true
	}
}
