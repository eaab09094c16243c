package store

import (
	"errors"
	"strings"
	"time"

	"forgewatch/pkg/logx"
)

// Event is the notification dedup unit: one item observed complete for one
// user. Two crafting runs of the same item differ by start time; the
// adjusted end time is fixed at the moment the event is built, so a later
// buff change produces a distinct event rather than rewriting this one.
type Event struct {
	UserID    string
	ProfileID string
	StartMS   int64
	EndMS     int64
}

// History records which completion events have already been notified.
//
// Commit is called only after confirmed delivery; a failed delivery must
// leave History untouched so the same items resurface next cycle.
type History interface {
	Contains(e Event) bool
	Commit(events []Event) error
	PurgeOlderThan(window time.Duration)
	Len() int
	Close() error
}

// HistoryConfig selects the history backend.
//
// Driver values:
//   - "" or "file": JSON document (array of 4-tuples), atomic rename writes
//   - "sqlite": SQLite database file (requires the sqlite build tag)
type HistoryConfig struct {
	Driver string
	Path   string
}

// OpenHistory initializes the configured history store.
func OpenHistory(cfg HistoryConfig, log logx.Logger) (History, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFileHistory(cfg.Path, log), nil
	case "sqlite", "sqlite3":
		return openSQLiteHistory(cfg.Path, log)
	default:
		return nil, errors.New("unknown history driver: " + cfg.Driver)
	}
}
