package tracker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"forgewatch/internal/notify"
	"forgewatch/internal/store"
	"forgewatch/pkg/logx"
)

type ManagerConfig struct {
	RegistrationsPath string
	PollInterval      time.Duration
	Retention         time.Duration
}

// Manager owns the poll pipeline: it reloads registrations fresh each
// cycle, runs store maintenance, scans, and dispatches. One instance is
// constructed at process start and passed everywhere by reference.
type Manager struct {
	cfg ManagerConfig
	log logx.Logger

	scanner    *Scanner
	dispatcher *notify.Dispatcher
	clocks     *store.ClockLedger
	history    store.History

	// ready gates the first cycle until the rest of the process finished
	// starting up; closed once, never reopened.
	ready <-chan struct{}

	// resolver backfills UUIDs for username-only registrations; uuidCache
	// persists lookups across cycles. RunCycle never overlaps itself, so
	// the cache needs no locking.
	resolver  UUIDResolver
	uuidCache map[string]string

	running atomic.Bool
	cron    *cron.Cron
}

// UUIDResolver turns a Minecraft username into its undashed UUID.
type UUIDResolver interface {
	UUIDForUsername(ctx context.Context, username string) (string, error)
}

func NewManager(cfg ManagerConfig, scanner *Scanner, dispatcher *notify.Dispatcher, clocks *store.ClockLedger, history store.History, ready <-chan struct{}, log logx.Logger) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if ready == nil {
		closed := make(chan struct{})
		close(closed)
		ready = closed
	}
	return &Manager{
		cfg:        cfg,
		log:        log,
		scanner:    scanner,
		dispatcher: dispatcher,
		clocks:     clocks,
		history:    history,
		ready:      ready,
		uuidCache:  map[string]string{},
	}
}

// SetResolver enables username-to-UUID backfill for registrations that
// carry no UUID. Without a resolver such accounts are skipped.
func (m *Manager) SetResolver(r UUIDResolver) { m.resolver = r }

// Start blocks until the ready gate opens, runs one immediate cycle, then
// schedules the fixed-interval loop. Stop by cancelling ctx.
func (m *Manager) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ready:
	}

	m.runGuarded(ctx)

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", m.cfg.PollInterval), func() {
		m.runGuarded(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule poll loop: %w", err)
	}
	m.cron = c
	c.Start()
	m.log.Info("poll loop started", logx.Duration("interval", m.cfg.PollInterval))

	<-ctx.Done()
	stopCtx := c.Stop()
	// Let an in-flight cycle finish its store writes.
	<-stopCtx.Done()
	m.log.Info("poll loop stopped")
	return nil
}

// runGuarded skips a tick when the previous cycle is still running, so a
// slow scan delays the next pass instead of overlapping it.
func (m *Manager) runGuarded(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !m.running.CompareAndSwap(false, true) {
		m.log.Warn("previous poll cycle still running; skipping tick")
		return
	}
	defer m.running.Store(false)
	m.RunCycle(ctx)
}

// RunCycle is one full pass: maintenance, scan, dispatch, diagnostics.
// Nothing in here may terminate the loop; failures degrade per unit.
func (m *Manager) RunCycle(ctx context.Context) {
	start := time.Now()
	m.log.Info("forge notification check started")

	// Registrations reload fresh every cycle so interactive changes take
	// effect without a restart.
	regs := store.LoadRegistrations(m.cfg.RegistrationsPath, m.log)
	m.resolveAccounts(ctx, regs)

	m.clocks.PurgeExpired()
	m.history.PurgeOlderThan(m.cfg.Retention)

	if len(regs) == 0 {
		m.log.Info("no users registered; nothing to check")
		return
	}

	res := m.scanner.Scan(ctx, regs)
	sent := m.dispatcher.Dispatch(ctx, res.Ready)
	logUpcoming(res.Upcoming, time.Now(), m.log)

	m.log.Info("forge notification check finished",
		logx.Int("users", len(regs)),
		logx.Int("notified", sent),
		logx.Int("upcoming", len(res.Upcoming)),
		logx.Duration("took", time.Since(start)))
}

// resolveAccounts backfills UUIDs for username-only accounts. Unresolvable
// accounts are dropped for this cycle only; the registration entry itself
// is never modified on disk.
func (m *Manager) resolveAccounts(ctx context.Context, regs map[string]store.Registration) {
	for userID, reg := range regs {
		kept := reg.Accounts[:0:0]
		for _, acc := range reg.Accounts {
			if acc.UUID == "" {
				uuid, ok := m.lookupUUID(ctx, acc.Username)
				if !ok {
					m.log.Warn("cannot resolve account; skipping this cycle",
						logx.String("user", userID), logx.String("username", acc.Username))
					continue
				}
				acc.UUID = uuid
			}
			kept = append(kept, acc)
		}
		reg.Accounts = kept
		regs[userID] = reg
	}
}

func (m *Manager) lookupUUID(ctx context.Context, username string) (string, bool) {
	if m.resolver == nil || username == "" {
		return "", false
	}
	if uuid, ok := m.uuidCache[username]; ok {
		return uuid, true
	}
	uuid, err := m.resolver.UUIDForUsername(ctx, username)
	if err != nil || uuid == "" {
		return "", false
	}
	m.uuidCache[username] = uuid
	return uuid, true
}
