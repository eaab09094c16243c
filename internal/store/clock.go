package store

import (
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"forgewatch/pkg/logx"
)

// ClockRecord marks one active enchanted-clock application. The record is
// meaningful only while now < EndTimestampMS; expired records are garbage
// the purge pass removes.
type ClockRecord struct {
	ProfileName    string `json:"profile_name"`
	EndTimestampMS int64  `json:"end_timestamp_ms"`
}

// ClockLedger tracks enchanted-clock usage per account+profile.
//
// Both the poll cycle and the interactive trigger path mutate it, so every
// load→mutate→save sequence runs under one mutex.
type ClockLedger struct {
	mu   sync.Mutex
	path string
	log  logx.Logger

	duration time.Duration
	entries  map[string]map[string]ClockRecord

	now func() time.Time
}

// OpenClockLedger loads the ledger document, starting empty on any read
// or parse failure. duration is how long one clock application lasts.
func OpenClockLedger(path string, duration time.Duration, log logx.Logger) *ClockLedger {
	l := &ClockLedger{
		path:     path,
		log:      log,
		duration: duration,
		entries:  map[string]map[string]ClockRecord{},
		now:      time.Now,
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("clock ledger unreadable; starting empty", logx.String("path", path), logx.Err(err))
		}
		return l
	}
	var entries map[string]map[string]ClockRecord
	if err := json.Unmarshal(b, &entries); err != nil {
		log.Warn("clock ledger malformed; starting empty", logx.String("path", path), logx.Err(err))
		return l
	}
	if entries != nil {
		l.entries = entries
	}
	return l
}

// IsActive reports whether a clock is still in effect for the profile.
func (l *ClockLedger) IsActive(accountUUID, profileID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.entries[accountUUID][profileID]
	if !ok {
		return false
	}
	return l.now().UnixMilli() < rec.EndTimestampMS
}

// MarkActive records a clock application ending duration from now and
// persists immediately: the interactive trigger path calls this outside
// the poll loop and must not lose the write to a crash.
func (l *ClockLedger) MarkActive(accountUUID, profileID, profileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.entries[accountUUID] == nil {
		l.entries[accountUUID] = map[string]ClockRecord{}
	}
	l.entries[accountUUID][profileID] = ClockRecord{
		ProfileName:    profileName,
		EndTimestampMS: l.now().Add(l.duration).UnixMilli(),
	}
	return l.saveLocked()
}

// Reset removes a clock record regardless of expiry.
func (l *ClockLedger) Reset(accountUUID, profileID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	profiles, ok := l.entries[accountUUID]
	if !ok {
		return nil
	}
	if _, ok := profiles[profileID]; !ok {
		return nil
	}
	delete(profiles, profileID)
	if len(profiles) == 0 {
		delete(l.entries, accountUUID)
	}
	return l.saveLocked()
}

// PurgeExpired drops expired and structurally invalid records plus any
// now-empty account keys, persisting only when something was removed.
func (l *ClockLedger) PurgeExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	nowMS := l.now().UnixMilli()
	removed := 0
	for account, profiles := range l.entries {
		for profile, rec := range profiles {
			if rec.EndTimestampMS <= 0 || nowMS >= rec.EndTimestampMS {
				delete(profiles, profile)
				removed++
			}
		}
		if len(profiles) == 0 {
			delete(l.entries, account)
		}
	}
	if removed > 0 {
		l.log.Debug("expired clock records purged", logx.Int("removed", removed))
		if err := l.saveLocked(); err != nil {
			l.log.Warn("clock ledger save failed; retrying next cycle", logx.Err(err))
		}
	}
	return removed
}

func (l *ClockLedger) saveLocked() error {
	return writeAtomic(l.path, l.entries)
}
