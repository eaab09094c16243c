package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"forgewatch/pkg/logx"
)

func TestClockLedgerLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock_usage.json")
	l := OpenClockLedger(path, time.Hour, logx.Nop())

	now := time.UnixMilli(1_000_000)
	l.now = func() time.Time { return now }

	if l.IsActive("acc", "prof") {
		t.Fatal("empty ledger should report inactive")
	}
	if err := l.MarkActive("acc", "prof", "Apple"); err != nil {
		t.Fatalf("MarkActive: %v", err)
	}
	if !l.IsActive("acc", "prof") {
		t.Fatal("freshly marked clock should be active")
	}

	// Still active just before expiry, inactive at the boundary.
	now = now.Add(time.Hour - time.Millisecond)
	if !l.IsActive("acc", "prof") {
		t.Fatal("clock should be active until end_timestamp_ms")
	}
	now = now.Add(time.Millisecond)
	if l.IsActive("acc", "prof") {
		t.Fatal("clock should be inactive at expiry")
	}

	// Expired record is removed along with its empty parent key.
	if removed := l.PurgeExpired(); removed != 1 {
		t.Fatalf("expected 1 purged record, got %d", removed)
	}
	if len(l.entries) != 0 {
		t.Fatalf("empty parent keys should be removed: %+v", l.entries)
	}
	if removed := l.PurgeExpired(); removed != 0 {
		t.Fatalf("second purge should be a no-op, got %d", removed)
	}
}

func TestClockLedgerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock_usage.json")

	l := OpenClockLedger(path, time.Hour, logx.Nop())
	if err := l.MarkActive("acc", "prof", "Apple"); err != nil {
		t.Fatalf("MarkActive: %v", err)
	}

	reopened := OpenClockLedger(path, time.Hour, logx.Nop())
	if !reopened.IsActive("acc", "prof") {
		t.Fatal("record should survive a reopen")
	}
	rec := reopened.entries["acc"]["prof"]
	if rec.ProfileName != "Apple" {
		t.Fatalf("profile name lost: %+v", rec)
	}

	if err := reopened.Reset("acc", "prof"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if reopened.IsActive("acc", "prof") {
		t.Fatal("reset record should be inactive")
	}
}

func TestClockLedgerMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock_usage.json")
	if err := os.WriteFile(path, []byte(`{"acc": "garbage"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := OpenClockLedger(path, time.Hour, logx.Nop())
	if len(l.entries) != 0 {
		t.Fatalf("malformed ledger should start empty, got %+v", l.entries)
	}

	// A structurally invalid record (no end timestamp) counts as expired.
	l.entries["acc"] = map[string]ClockRecord{"prof": {ProfileName: "x"}}
	if removed := l.PurgeExpired(); removed != 1 {
		t.Fatalf("invalid record should be purged, got %d", removed)
	}
}
