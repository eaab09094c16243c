package notify

import (
	"context"
	"errors"

	"forgewatch/internal/store"
	"forgewatch/pkg/logx"
)

// Dispatcher sends one aggregated message per user and commits the
// delivered events into history — only after confirmed delivery, so a
// failed send leaves history untouched and the items resurface next cycle.
type Dispatcher struct {
	deliverer Deliverer
	history   store.History
	log       logx.Logger
}

func NewDispatcher(deliverer Deliverer, history store.History, log logx.Logger) *Dispatcher {
	return &Dispatcher{deliverer: deliverer, history: history, log: log}
}

// Dispatch processes all user batches for one cycle. Returns the number
// of users notified; per-user failures are logged and isolated.
func (d *Dispatcher) Dispatch(ctx context.Context, batches []UserBatch) int {
	sent := 0
	for _, batch := range batches {
		if len(batch.Items) == 0 {
			continue
		}
		if batch.Preference != store.PreferenceWebhook {
			d.log.Warn("user has no delivery target; skipping notification",
				logx.String("user", batch.UserID),
				logx.String("preference", batch.Preference),
				logx.Int("items", len(batch.Items)))
			continue
		}

		msg := BuildMessage(batch.UserID, batch.Items)
		if err := d.deliverer.Deliver(ctx, batch.UserID, msg); err != nil {
			// No history mutation: the same items come back as ready next
			// cycle. Duplicate notification beats silent loss.
			if errors.Is(err, ErrNoTarget) {
				d.log.Warn("no webhook url configured; notification skipped",
					logx.String("user", batch.UserID),
					logx.Int("items", len(batch.Items)))
			} else {
				d.log.Error("notification delivery failed; will retry next cycle",
					logx.String("user", batch.UserID),
					logx.Int("items", len(batch.Items)),
					logx.Err(err))
			}
			continue
		}

		events := make([]store.Event, 0, len(batch.Items))
		for _, it := range batch.Items {
			events = append(events, it.Event(batch.UserID))
		}
		if err := d.history.Commit(events); err != nil {
			d.log.Warn("history write failed after delivery; retrying persist next cycle",
				logx.String("user", batch.UserID), logx.Err(err))
		}
		d.log.Info("notification delivered",
			logx.String("user", batch.UserID), logx.Int("items", len(batch.Items)))
		sent++
	}
	return sent
}
