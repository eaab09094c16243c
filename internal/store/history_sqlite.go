//go:build sqlite
// +build sqlite

package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"forgewatch/pkg/logx"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS notified (
	user_id    TEXT NOT NULL,
	profile_id TEXT NOT NULL,
	start_ms   INTEGER NOT NULL,
	end_ms     INTEGER NOT NULL,
	PRIMARY KEY (user_id, profile_id, start_ms, end_ms)
);
CREATE INDEX IF NOT EXISTS idx_notified_end ON notified(end_ms);
`

type sqliteHistory struct {
	db  *sql.DB
	log logx.Logger
	now func() time.Time
}

func openSQLiteHistory(path string, log logx.Logger) (History, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteHistory{db: db, log: log, now: time.Now}, nil
}

func (h *sqliteHistory) Contains(e Event) bool {
	var one int
	err := h.db.QueryRow(
		`SELECT 1 FROM notified WHERE user_id=? AND profile_id=? AND start_ms=? AND end_ms=?`,
		e.UserID, e.ProfileID, e.StartMS, e.EndMS,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		h.log.Warn("history lookup failed; treating as unseen", logx.Err(err))
		return false
	}
	return true
}

func (h *sqliteHistory) Commit(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	for _, e := range events {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO notified(user_id, profile_id, start_ms, end_ms) VALUES(?,?,?,?)`,
			e.UserID, e.ProfileID, e.StartMS, e.EndMS,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (h *sqliteHistory) PurgeOlderThan(window time.Duration) {
	threshold := h.now().UnixMilli() - window.Milliseconds()
	res, err := h.db.Exec(`DELETE FROM notified WHERE end_ms < ?`, threshold)
	if err != nil {
		h.log.Warn("history purge failed", logx.Err(err))
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		h.log.Info("purged old notification history entries", logx.Int64("removed", n))
	}
}

func (h *sqliteHistory) Len() int {
	var n int
	if err := h.db.QueryRow(`SELECT COUNT(*) FROM notified`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (h *sqliteHistory) Close() error { return h.db.Close() }
