package store

import (
	"os"
	"time"

	json "github.com/goccy/go-json"

	"forgewatch/pkg/logx"
)

// fileHistory keeps the event set in memory and persists it as a JSON
// array of [user_id, profile_id, start_ms, end_ms] tuples.
type fileHistory struct {
	path string
	log  logx.Logger

	events map[Event]struct{}

	// dirty marks unsaved mutations after a failed write so the next
	// persisting operation retries them.
	dirty bool

	now func() time.Time
}

func openFileHistory(path string, log logx.Logger) *fileHistory {
	h := &fileHistory{
		path:   path,
		log:    log,
		events: map[Event]struct{}{},
		now:    time.Now,
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("notification history unreadable; starting empty", logx.String("path", path), logx.Err(err))
		}
		return h
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		log.Warn("notification history malformed; starting empty", logx.String("path", path), logx.Err(err))
		return h
	}

	dropped := 0
	for _, msg := range raw {
		var tuple []any
		if err := json.Unmarshal(msg, &tuple); err != nil {
			dropped++
			continue
		}
		e, ok := decodeTuple(tuple)
		if !ok {
			dropped++
			continue
		}
		h.events[e] = struct{}{}
	}
	if dropped > 0 {
		log.Warn("dropped malformed history entries", logx.Int("dropped", dropped))
	}
	log.Debug("notification history loaded", logx.Int("entries", len(h.events)))
	return h
}

func decodeTuple(tuple []any) (Event, bool) {
	if len(tuple) != 4 {
		return Event{}, false
	}
	user, ok := tuple[0].(string)
	if !ok {
		return Event{}, false
	}
	profile, ok := tuple[1].(string)
	if !ok {
		return Event{}, false
	}
	start, ok := asMillis(tuple[2])
	if !ok {
		return Event{}, false
	}
	end, ok := asMillis(tuple[3])
	if !ok {
		return Event{}, false
	}
	return Event{UserID: user, ProfileID: profile, StartMS: start, EndMS: end}, true
}

// asMillis accepts the numeric forms a JSON decode can produce.
func asMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func (h *fileHistory) Contains(e Event) bool {
	_, ok := h.events[e]
	return ok
}

func (h *fileHistory) Commit(events []Event) error {
	if len(events) == 0 && !h.dirty {
		return nil
	}
	for _, e := range events {
		h.events[e] = struct{}{}
	}
	if err := h.save(); err != nil {
		// Keep the in-memory additions: the process won't re-notify, and
		// the write is retried on the next commit or purge.
		h.dirty = true
		return err
	}
	h.dirty = false
	return nil
}

func (h *fileHistory) PurgeOlderThan(window time.Duration) {
	threshold := h.now().UnixMilli() - window.Milliseconds()
	removed := 0
	for e := range h.events {
		if e.EndMS < threshold {
			delete(h.events, e)
			removed++
		}
	}
	if removed == 0 && !h.dirty {
		return
	}
	if removed > 0 {
		h.log.Info("purged old notification history entries", logx.Int("removed", removed))
	}
	if err := h.save(); err != nil {
		h.dirty = true
		h.log.Warn("notification history save failed; retrying next cycle", logx.Err(err))
		return
	}
	h.dirty = false
}

func (h *fileHistory) Len() int { return len(h.events) }

func (h *fileHistory) Close() error {
	if !h.dirty {
		return nil
	}
	return h.save()
}

func (h *fileHistory) save() error {
	out := make([][]any, 0, len(h.events))
	for e := range h.events {
		out = append(out, []any{e.UserID, e.ProfileID, e.StartMS, e.EndMS})
	}
	return writeAtomic(h.path, out)
}
