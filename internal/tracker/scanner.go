// Package tracker is the polling core: it scans every registered user's
// accounts and profiles for forge slots, classifies each slot against the
// notification history, and drives the dispatch pipeline on a fixed
// interval.
package tracker

import (
	"context"
	"sort"
	"time"

	"forgewatch/internal/forge"
	"forgewatch/internal/hypixel"
	"forgewatch/internal/notify"
	"forgewatch/internal/store"
	"forgewatch/pkg/logx"
)

// SlotState classifies one forge slot in one poll cycle. Slots carry no
// persisted per-slot state; the only durable mark is the history event.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotInProgress
	SlotReadyNew
	SlotReadyNotified
	// SlotUnknownDuration means the item is missing from the catalog so
	// readiness cannot be determined.
	SlotUnknownDuration
)

// ProfileFetcher is the external profile source. A per-account failure is
// logged and skipped; it never aborts the cycle.
type ProfileFetcher interface {
	Profiles(ctx context.Context, accountUUID string) ([]hypixel.Profile, error)
}

// ClockSource reports whether the flat-duration buff is in effect.
type ClockSource interface {
	IsActive(accountUUID, profileID string) bool
}

// Upcoming is one in-progress item surfaced only in operator diagnostics.
type Upcoming struct {
	UserID      string
	ProfileName string
	ItemName    string
	EndMS       int64
}

// Result is one full scan pass over all users.
type Result struct {
	Ready    []notify.UserBatch
	Upcoming []Upcoming
}

type Scanner struct {
	fetcher ProfileFetcher
	catalog *forge.Catalog
	clocks  ClockSource
	history store.History

	clockMS int64
	log     logx.Logger
	now     func() time.Time
}

func NewScanner(fetcher ProfileFetcher, catalog *forge.Catalog, clocks ClockSource, history store.History, clockDuration time.Duration, log logx.Logger) *Scanner {
	return &Scanner{
		fetcher: fetcher,
		catalog: catalog,
		clocks:  clocks,
		history: history,
		clockMS: clockDuration.Milliseconds(),
		log:     log,
		now:     time.Now,
	}
}

// Scan walks every user, account, profile and slot once. Identical inputs
// produce identical classifications: anything dispatched and committed in
// a previous pass comes back as already-notified, never ready again.
func (s *Scanner) Scan(ctx context.Context, regs map[string]store.Registration) Result {
	var res Result

	// Stable user order keeps diagnostics and webhook ordering
	// deterministic across cycles.
	users := make([]string, 0, len(regs))
	for id := range regs {
		users = append(users, id)
	}
	sort.Strings(users)

	for _, userID := range users {
		if ctx.Err() != nil {
			return res
		}
		reg := regs[userID]
		batch := notify.UserBatch{UserID: userID, Preference: reg.Preference}

		for _, acc := range reg.Accounts {
			s.scanAccount(ctx, userID, acc, &batch, &res)
		}

		if len(batch.Items) > 0 {
			res.Ready = append(res.Ready, batch)
		}
	}
	return res
}

func (s *Scanner) scanAccount(ctx context.Context, userID string, acc store.Account, batch *notify.UserBatch, res *Result) {
	profiles, err := s.fetcher.Profiles(ctx, acc.UUID)
	if err != nil {
		s.log.Warn("profile fetch failed; skipping account this cycle",
			logx.String("user", userID), logx.String("uuid", acc.UUID), logx.Err(err))
		return
	}

	for _, p := range profiles {
		if p.ID == "" {
			// Without a profile ID neither the history identity nor the
			// clock ledger key exists, so tracking is off for this profile.
			s.log.Warn("profile missing id; tracking disabled this cycle",
				logx.String("user", userID), logx.String("profile", p.CuteName))
			continue
		}

		tier := p.ForgeTimeTier
		if acc.QuickForgeLevel > 0 {
			tier = acc.QuickForgeLevel
		}
		reduction := forge.QuickForgeReduction(tier)
		clockActive := s.clocks.IsActive(acc.UUID, p.ID)

		for _, slot := range p.Slots {
			state, item := s.classify(userID, p, slot, reduction, clockActive)
			switch state {
			case SlotReadyNew:
				batch.Items = append(batch.Items, item)
			case SlotInProgress:
				res.Upcoming = append(res.Upcoming, Upcoming{
					UserID:      userID,
					ProfileName: p.CuteName,
					ItemName:    item.ItemName,
					EndMS:       item.EndMS,
				})
			case SlotUnknownDuration:
				s.log.Warn("item missing from catalog; cannot compute readiness",
					logx.String("item", slot.ItemID), logx.String("profile", p.CuteName))
			}
		}
	}
}

// classify evaluates one slot. The adjusted end time is computed fresh
// from the current buff state; the resulting 4-tuple identity is what is
// checked against, and later stored in, the history.
func (s *Scanner) classify(userID string, p hypixel.Profile, slot hypixel.Slot, reduction float64, clockActive bool) (SlotState, notify.Item) {
	// Absent start times never reach here: slots without one are dropped
	// when the API response is normalized. A start of 0 is a real epoch
	// value and must be tracked.
	if slot.ItemID == "" {
		return SlotEmpty, notify.Item{}
	}

	cat, ok := s.catalog.Lookup(slot.ItemID)
	if !ok {
		return SlotUnknownDuration, notify.Item{}
	}

	endMS := forge.AdjustedEndTime(slot.StartMS, cat.DurationMS, reduction, clockActive, s.clockMS)
	item := notify.Item{
		ProfileID:   p.ID,
		ProfileName: p.CuteName,
		ItemID:      slot.ItemID,
		ItemName:    cat.Name,
		SlotGroup:   slot.Group,
		SlotIndex:   slot.Index,
		StartMS:     slot.StartMS,
		EndMS:       endMS,
	}

	if s.now().UnixMilli() < endMS {
		return SlotInProgress, item
	}
	if s.history.Contains(item.Event(userID)) {
		return SlotReadyNotified, item
	}
	return SlotReadyNew, item
}
