// Package scan owns the scan store: the scan and result lists, the scan
// configuration and the simulated progress of every active scan.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/0x6d61/securescout/internal/model"
	"github.com/0x6d61/securescout/internal/storage"
)

// Timing controls the progress simulator.
type Timing struct {
	// StartDelay is the wait between creation and the pending -> running flip.
	StartDelay time.Duration
	// TickInterval is the period of progress updates.
	TickInterval time.Duration
	// MaxIncrement bounds the random progress added per tick.
	MaxIncrement float64
}

// DefaultTiming returns the dashboard's simulator timings.
func DefaultTiming() Timing {
	return Timing{
		StartDelay:   500 * time.Millisecond,
		TickInterval: time.Second,
		MaxIncrement: 15,
	}
}

const persistTimeout = 5 * time.Second

// Manager is the application state for scans. Create one per process with
// New and release it with Close.
type Manager struct {
	store    storage.Store
	logger   *slog.Logger
	now      func() time.Time
	rng      *rand.Rand
	timing   Timing
	observer func(model.Scan)

	mu      sync.Mutex
	scans   []*model.Scan
	results []model.Scan
	cfg     model.ScanConfig
	ids     *dayCounter
	tasks   map[string]context.CancelFunc
	lastErr string
	closed  bool

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	// Observer events are queued under mu and delivered in queue order by
	// a single dispatch goroutine.
	evMu     sync.Mutex
	evCond   *sync.Cond
	events   []model.Scan
	evClosed bool
	evDone   chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for failures and lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now, mainly for tests that pin the scan date.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRand sets the random source of the simulator.
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithTiming overrides the simulator timings.
func WithTiming(t Timing) Option {
	return func(m *Manager) {
		m.timing = t
	}
}

// WithObserver registers fn to receive a copy of a scan after every change.
// Events are delivered in the order the changes were made, from one
// goroutine and without the store lock held. fn must not call Close.
func WithObserver(fn func(model.Scan)) Option {
	return func(m *Manager) {
		m.observer = fn
	}
}

// New loads the stored snapshots and resumes any scan left active by a
// previous process.
func New(ctx context.Context, store storage.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("scan: store is required")
	}
	baseCtx, stop := context.WithCancel(context.Background())
	m := &Manager{
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5ec07e)),
		timing:  DefaultTiming(),
		cfg:     model.DefaultScanConfig(),
		ids:     newDayCounter(),
		tasks:   make(map[string]context.CancelFunc),
		baseCtx: baseCtx,
		stop:    stop,
		evDone:  make(chan struct{}),
	}
	m.evCond = sync.NewCond(&m.evMu)
	for _, opt := range opts {
		opt(m)
	}

	if err := m.load(ctx); err != nil {
		stop()
		return nil, err
	}

	if m.observer != nil {
		go m.dispatch()
	} else {
		close(m.evDone)
	}

	m.mu.Lock()
	for _, s := range m.scans {
		m.ids.observe(s.ID)
		if s.Status.Active() {
			m.logger.Info("resuming scan", "id", s.ID, "status", s.Status, "progress", s.Progress)
			m.startTaskLocked(s.ID, float64(s.Progress))
		}
	}
	for _, r := range m.results {
		m.ids.observe(r.ID)
	}
	m.mu.Unlock()

	return m, nil
}

// load reads the three snapshots. Missing snapshots keep the defaults and
// undecodable ones are logged and ignored.
func (m *Manager) load(ctx context.Context) error {
	var scans []*model.Scan
	if err := m.read(ctx, storage.KeyScans, &scans); err != nil {
		return err
	}
	var results []model.Scan
	if err := m.read(ctx, storage.KeyScanResults, &results); err != nil {
		return err
	}
	var cfg *model.ScanConfig
	if err := m.read(ctx, storage.KeyScanConfig, &cfg); err != nil {
		return err
	}

	// A null entry would otherwise panic on first use.
	scans = slices.DeleteFunc(scans, func(s *model.Scan) bool { return s == nil })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans = scans
	m.results = results
	if cfg != nil {
		m.cfg = *cfg
	}
	return nil
}

func (m *Manager) read(ctx context.Context, key string, dst any) error {
	b, err := m.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan: load %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		m.logger.Error("failed to decode stored snapshot", "key", key, "error", err)
	}
	return nil
}

// write replaces one snapshot. Failures are logged, never returned: the
// in-memory state stays authoritative.
func (m *Manager) write(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("failed to encode snapshot", "key", key, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.Put(ctx, key, b); err != nil {
		m.logger.Error("failed to save snapshot", "key", key, "error", err)
	}
}

func (m *Manager) saveScansLocked() {
	scans := m.scans
	if scans == nil {
		scans = []*model.Scan{}
	}
	m.write(storage.KeyScans, scans)
}

func (m *Manager) saveResultsLocked() {
	results := m.results
	if results == nil {
		results = []model.Scan{}
	}
	m.write(storage.KeyScanResults, results)
}

func (m *Manager) saveConfigLocked() {
	m.write(storage.KeyScanConfig, m.cfg)
}

// fail records a human-readable message for LastError, logs and returns err.
func (m *Manager) fail(action string, err error) error {
	m.mu.Lock()
	m.lastErr = action + ": " + err.Error()
	m.mu.Unlock()
	m.logger.Error(action, "error", err)
	return err
}

// LastError returns the message of the most recent failed action, or "" if
// the last action succeeded.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// notifyLocked queues an observer event. Queueing under mu fixes the
// delivery order to the order of the changes.
func (m *Manager) notifyLocked(s model.Scan) {
	if m.observer == nil {
		return
	}
	m.evMu.Lock()
	m.events = append(m.events, s)
	m.evMu.Unlock()
	m.evCond.Signal()
}

func (m *Manager) dispatch() {
	defer close(m.evDone)
	for {
		m.evMu.Lock()
		for len(m.events) == 0 && !m.evClosed {
			m.evCond.Wait()
		}
		batch, closed := m.events, m.evClosed
		m.events = nil
		m.evMu.Unlock()

		for _, s := range batch {
			m.observer(s)
		}
		if closed && len(batch) == 0 {
			return
		}
	}
}

// Close invalidates every progress task and waits for them to exit. The
// store is not closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for id, cancel := range m.tasks {
		cancel()
		delete(m.tasks, id)
	}
	m.mu.Unlock()

	m.stop()
	m.wg.Wait()

	// Flush pending observer events.
	m.evMu.Lock()
	m.evClosed = true
	m.evMu.Unlock()
	m.evCond.Broadcast()
	<-m.evDone
	return nil
}
