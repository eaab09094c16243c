package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"forgewatch/internal/hypixel"
	"forgewatch/internal/notify"
	"forgewatch/internal/store"
	"forgewatch/pkg/logx"
)

type recordingDeliverer struct {
	messages []string
	users    []string
}

func (r *recordingDeliverer) Deliver(_ context.Context, userID, message string) error {
	r.users = append(r.users, userID)
	r.messages = append(r.messages, message)
	return nil
}

func TestRunCycleEndToEnd(t *testing.T) {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "registrations.json")
	if err := os.WriteFile(regPath, []byte(`{"u1": [{"uuid": "acc1"}]}`), 0o644); err != nil {
		t.Fatalf("write registrations: %v", err)
	}

	hist, err := store.OpenHistory(store.HistoryConfig{Path: filepath.Join(dir, "history.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	clocks := store.OpenClockLedger(filepath.Join(dir, "clock_usage.json"), time.Hour, logx.Nop())

	now := time.Now()
	fetcher := &fakeFetcher{profiles: map[string][]hypixel.Profile{
		"acc1": {{
			ID:       "prof-1",
			CuteName: "Apple",
			Slots: []hypixel.Slot{
				{Group: "forge_1", Index: "1", ItemID: "GEM", StartMS: now.UnixMilli() - 2000},
			},
		}},
	}}

	scanner := NewScanner(fetcher, testCatalog(), clocks, hist, time.Hour, logx.Nop())
	rd := &recordingDeliverer{}
	dispatcher := notify.NewDispatcher(rd, hist, logx.Nop())

	m := NewManager(ManagerConfig{RegistrationsPath: regPath}, scanner, dispatcher, clocks, hist, nil, logx.Nop())

	// First cycle: one ready item, one delivery, one history entry.
	m.RunCycle(context.Background())
	if len(rd.messages) != 1 {
		t.Fatalf("first cycle should deliver once, got %d", len(rd.messages))
	}
	if hist.Len() != 1 {
		t.Fatalf("history should hold the delivered event, len=%d", hist.Len())
	}

	// Second cycle over unchanged data: nothing new.
	m.RunCycle(context.Background())
	if len(rd.messages) != 1 {
		t.Fatalf("second cycle must not re-notify, got %d deliveries", len(rd.messages))
	}
}

type fakeResolver struct {
	uuids map[string]string
	calls int
}

func (f *fakeResolver) UUIDForUsername(_ context.Context, username string) (string, error) {
	f.calls++
	uuid, ok := f.uuids[username]
	if !ok {
		return "", context.DeadlineExceeded
	}
	return uuid, nil
}

func TestRunCycleResolvesUsernameOnlyAccounts(t *testing.T) {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "registrations.json")
	reg := `{"u1": {"accounts": [{"username": "Steve"}, {"username": "Nobody"}]}}`
	if err := os.WriteFile(regPath, []byte(reg), 0o644); err != nil {
		t.Fatalf("write registrations: %v", err)
	}

	hist, err := store.OpenHistory(store.HistoryConfig{Path: filepath.Join(dir, "history.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	clocks := store.OpenClockLedger(filepath.Join(dir, "clock_usage.json"), time.Hour, logx.Nop())

	now := time.Now()
	fetcher := &fakeFetcher{profiles: map[string][]hypixel.Profile{
		"acc-steve": {{
			ID:       "prof-1",
			CuteName: "Apple",
			Slots: []hypixel.Slot{
				{Group: "forge_1", Index: "1", ItemID: "GEM", StartMS: now.UnixMilli() - 2000},
			},
		}},
	}}

	scanner := NewScanner(fetcher, testCatalog(), clocks, hist, time.Hour, logx.Nop())
	rd := &recordingDeliverer{}
	dispatcher := notify.NewDispatcher(rd, hist, logx.Nop())

	m := NewManager(ManagerConfig{RegistrationsPath: regPath}, scanner, dispatcher, clocks, hist, nil, logx.Nop())
	resolver := &fakeResolver{uuids: map[string]string{"Steve": "acc-steve"}}
	m.SetResolver(resolver)

	m.RunCycle(context.Background())
	if len(rd.messages) != 1 {
		t.Fatalf("resolved account should be scanned and notified, got %d deliveries", len(rd.messages))
	}

	// Successful lookups are cached; only the failing name is retried.
	m.RunCycle(context.Background())
	if resolver.calls != 3 {
		t.Fatalf("resolver calls = %d, want 3 (two first cycle, one retry)", resolver.calls)
	}
}

func TestRunCycleSurvivesMissingRegistrations(t *testing.T) {
	dir := t.TempDir()
	hist, err := store.OpenHistory(store.HistoryConfig{Path: filepath.Join(dir, "history.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	clocks := store.OpenClockLedger(filepath.Join(dir, "clock_usage.json"), time.Hour, logx.Nop())

	fetcher := &fakeFetcher{}
	scanner := NewScanner(fetcher, testCatalog(), clocks, hist, time.Hour, logx.Nop())
	rd := &recordingDeliverer{}
	dispatcher := notify.NewDispatcher(rd, hist, logx.Nop())

	m := NewManager(ManagerConfig{RegistrationsPath: filepath.Join(dir, "missing.json")}, scanner, dispatcher, clocks, hist, nil, logx.Nop())
	m.RunCycle(context.Background())

	if len(rd.messages) != 0 || fetcher.calls != 0 {
		t.Fatalf("empty registrations should short-circuit the cycle")
	}
}

func TestRunCyclePurgesStores(t *testing.T) {
	dir := t.TempDir()
	hist, err := store.OpenHistory(store.HistoryConfig{Path: filepath.Join(dir, "history.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	old := store.Event{UserID: "u", ProfileID: "p", StartMS: 1, EndMS: time.Now().Add(-8 * 24 * time.Hour).UnixMilli()}
	if err := hist.Commit([]store.Event{old}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	clocks := store.OpenClockLedger(filepath.Join(dir, "clock_usage.json"), time.Nanosecond, logx.Nop())
	if err := clocks.MarkActive("acc", "prof", "Apple"); err != nil {
		t.Fatalf("MarkActive: %v", err)
	}

	scanner := NewScanner(&fakeFetcher{}, testCatalog(), clocks, hist, time.Hour, logx.Nop())
	dispatcher := notify.NewDispatcher(&recordingDeliverer{}, hist, logx.Nop())
	m := NewManager(ManagerConfig{RegistrationsPath: filepath.Join(dir, "missing.json")}, scanner, dispatcher, clocks, hist, nil, logx.Nop())

	m.RunCycle(context.Background())

	if hist.Len() != 0 {
		t.Fatalf("stale history entries should be purged before scanning, len=%d", hist.Len())
	}
	if clocks.IsActive("acc", "prof") {
		t.Fatal("expired clock record should be purged")
	}
}
