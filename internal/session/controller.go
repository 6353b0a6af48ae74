// Package session implements the recognition-event session controller: the
// state machine that turns per-frame face matches into debounced,
// cooldown-gated attendance marks and a display-mode signal for the renderer.
package session

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lbansal/face-attendance/internal/store"
)

// Defaults match the reference deployment.
const (
	DefaultCooldown     = 30 * time.Second
	DefaultDisplayTicks = 10
)

// Store is the slice of the record store the controller consumes.
// When the concrete backend also implements store.ConditionalMarker, the
// cooldown gate and the increment are applied atomically by the store;
// otherwise the controller falls back to read-gate-then-update, which is
// best-effort under concurrent writers.
type Store interface {
	GetRecord(ctx context.Context, subjectID string) (*store.AttendanceRecord, error)
	UpdateRecord(ctx context.Context, subjectID string, fields store.RecordFields) error
}

// Config holds the controller tuning knobs.
type Config struct {
	// Cooldown is the minimum interval between two accepted marks for the
	// same subject. Zero means DefaultCooldown.
	Cooldown time.Duration
	// DisplayTicks is how many ticks the record screen stays up.
	// Zero means DefaultDisplayTicks.
	DisplayTicks int
	// Station identifies this kiosk in attendance events.
	Station string
}

// Controller drives per-subject sessions through the state machine.
// Tick must be called from a single goroutine; LastSignal is safe to read
// concurrently.
type Controller struct {
	store  Store
	marker store.ConditionalMarker
	events store.EventWriter
	cfg    Config
	now    func() time.Time
	logf   func(format string, args ...any)

	sessions map[string]*session
	worker   *worker

	mu   sync.RWMutex
	last Signal
}

type session struct {
	subjectID string
	stage     Stage
	ticks     int
	cached    *store.AttendanceRecord
	pending   chan markResult
}

type markResult struct {
	rec     *store.AttendanceRecord
	applied bool
	missing bool
	err     error
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithEvents attaches an audit writer for accepted marks.
func WithEvents(w store.EventWriter) Option {
	return func(c *Controller) { c.events = w }
}

// WithLogf overrides the diagnostic logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Controller) { c.logf = logf }
}

// WithWorker moves record-store round trips off the tick path onto a worker
// goroutine. A session stays in IDENTIFIED, emitting the checking signal,
// until its result resolves. Without this option the controller resolves the
// store call inline, stalling the tick for the duration of the round trip.
func WithWorker(queueSize int) Option {
	return func(c *Controller) { c.worker = newWorker(c, queueSize) }
}

// New creates a controller over the given record store.
func New(st Store, cfg Config, opts ...Option) *Controller {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.DisplayTicks <= 0 {
		cfg.DisplayTicks = DefaultDisplayTicks
	}

	c := &Controller{
		store:    st,
		cfg:      cfg,
		now:      time.Now,
		logf:     log.Printf,
		sessions: make(map[string]*session),
		last:     Signal{Mode: ModeIdle},
	}
	if m, ok := st.(store.ConditionalMarker); ok {
		c.marker = m
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.worker != nil {
		c.worker.start()
	}
	return c
}

// Close stops the store worker, if any. The controller must not be ticked
// after Close.
func (c *Controller) Close() {
	if c.worker != nil {
		c.worker.stop()
	}
}

// Stages returns a snapshot of the active sessions and their stages.
func (c *Controller) Stages() map[string]Stage {
	out := make(map[string]Stage, len(c.sessions))
	for id, s := range c.sessions {
		out[id] = s.stage
	}
	return out
}

// LastSignal returns the signal emitted by the most recent tick.
func (c *Controller) LastSignal() Signal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Tick processes one frame's worth of accepted matches and returns the
// display-mode signal for this tick. Transitions are applied in call order;
// a store failure degrades to retrying on the next tick, never to a crash.
func (c *Controller) Tick(ctx context.Context, observed []Observation) Signal {
	best := dedupe(observed)

	// Detection lost mid-session: clear immediately, whatever the stage.
	for id := range c.sessions {
		if _, ok := best[id]; !ok {
			delete(c.sessions, id)
		}
	}

	for id := range best {
		if _, ok := c.sessions[id]; !ok {
			c.sessions[id] = &session{subjectID: id, stage: StageIdentified}
		}
	}

	signals := make(map[string]Signal, len(c.sessions))
	for id, s := range c.sessions {
		signals[id] = c.step(ctx, s)
	}

	sig := primarySignal(best, signals)
	c.mu.Lock()
	c.last = sig
	c.mu.Unlock()
	return sig
}

// step advances one session by one tick and returns its signal.
func (c *Controller) step(ctx context.Context, s *session) Signal {
	switch s.stage {
	case StageIdentified:
		res, ready := c.resolve(ctx, s)
		if !ready {
			s.ticks++
			return Signal{Mode: ModeChecking, SubjectID: s.subjectID}
		}
		switch {
		case res.err != nil:
			c.logf("record store unavailable for %s, retrying next tick: %v", s.subjectID, res.err)
			return Signal{Mode: ModeChecking, SubjectID: s.subjectID}
		case res.missing:
			c.logf("no record found for subject %s", s.subjectID)
			delete(c.sessions, s.subjectID)
			return Signal{Mode: ModeIdle}
		case !res.applied:
			// Denied by the cooldown gate. The denied stage is single-tick:
			// emit the signal and clear right away.
			s.stage = StageDeniedCooldown
			delete(c.sessions, s.subjectID)
			return Signal{Mode: ModeAlreadyMarked, SubjectID: s.subjectID}
		default:
			s.stage = StageDisplaying
			s.ticks = 0
			s.cached = res.rec
			return Signal{Mode: ModeShowingRecord, SubjectID: s.subjectID, Record: s.cached}
		}

	case StageDisplaying:
		s.ticks++
		if s.ticks >= c.cfg.DisplayTicks {
			delete(c.sessions, s.subjectID)
			return Signal{Mode: ModeIdle}
		}
		return Signal{Mode: ModeShowingRecord, SubjectID: s.subjectID, Record: s.cached}

	default:
		// Denied sessions are cleared on the tick they are entered; a stale
		// entry here means a bug, recover by clearing it.
		delete(c.sessions, s.subjectID)
		return Signal{Mode: ModeIdle}
	}
}

// resolve obtains the mark result for an identified session, either inline or
// from the worker. The second return value is false while the result is still
// in flight.
func (c *Controller) resolve(ctx context.Context, s *session) (markResult, bool) {
	if c.worker == nil {
		return c.mark(ctx, s.subjectID), true
	}

	if s.pending == nil {
		reply := make(chan markResult, 1)
		if !c.worker.dispatch(markRequest{subjectID: s.subjectID, reply: reply}) {
			// Queue full. Treat like a transient store stall.
			return markResult{}, false
		}
		s.pending = reply
	}

	select {
	case res := <-s.pending:
		s.pending = nil
		return res, true
	default:
		return markResult{}, false
	}
}

// mark performs the record fetch and the cooldown-gated update, and appends
// the audit event for an applied mark. The event is appended here, not on the
// tick path, so a mark resolved after its session was abandoned still reaches
// the audit trail and events stay in step with total_attendance.
func (c *Controller) mark(ctx context.Context, subjectID string) markResult {
	now := c.now()

	if c.marker != nil {
		rec, applied, err := c.marker.MarkAttendance(ctx, subjectID, now, c.cfg.Cooldown)
		if errors.Is(err, store.ErrNotFound) {
			return markResult{missing: true}
		}
		if err != nil {
			return markResult{err: err}
		}
		if applied {
			c.appendEvent(ctx, rec)
		}
		return markResult{rec: rec, applied: applied}
	}

	rec, err := c.store.GetRecord(ctx, subjectID)
	if err != nil {
		return markResult{err: err}
	}
	if rec == nil {
		return markResult{missing: true}
	}
	if !rec.Eligible(now, c.cfg.Cooldown) {
		return markResult{rec: rec, applied: false}
	}

	total := rec.TotalAttendance + 1
	ts := now.Format(store.TimeLayout)
	err = c.store.UpdateRecord(ctx, subjectID, store.RecordFields{
		TotalAttendance:    &total,
		LastAttendanceTime: &ts,
	})
	if err != nil {
		return markResult{err: err}
	}

	rec.TotalAttendance = total
	rec.LastAttendanceTime = ts
	c.appendEvent(ctx, rec)
	return markResult{rec: rec, applied: true}
}

func (c *Controller) appendEvent(ctx context.Context, rec *store.AttendanceRecord) {
	if c.events == nil {
		return
	}
	ev := store.AttendanceEvent{
		ID:        uuid.New().String(),
		SubjectID: rec.SubjectID,
		Station:   c.cfg.Station,
		MarkedAt:  c.now(),
		Total:     rec.TotalAttendance,
	}
	if err := c.events.AppendEvent(ctx, ev); err != nil {
		c.logf("failed to append attendance event for %s: %v", rec.SubjectID, err)
	}
}

// dedupe keeps the minimum distance per subject.
func dedupe(observed []Observation) map[string]float64 {
	best := make(map[string]float64, len(observed))
	for _, o := range observed {
		if o.SubjectID == "" {
			continue
		}
		if d, ok := best[o.SubjectID]; !ok || o.Distance < d {
			best[o.SubjectID] = o.Distance
		}
	}
	return best
}

// primarySignal picks the signal to put on screen when several sessions are
// active: the most advanced mode wins, ties go to the closest match.
func primarySignal(best map[string]float64, signals map[string]Signal) Signal {
	ids := make([]string, 0, len(signals))
	for id := range signals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := modePriority(signals[ids[i]].Mode), modePriority(signals[ids[j]].Mode)
		if pi != pj {
			return pi > pj
		}
		if best[ids[i]] != best[ids[j]] {
			return best[ids[i]] < best[ids[j]]
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		if sig := signals[id]; sig.Mode != ModeIdle {
			return sig
		}
	}
	return Signal{Mode: ModeIdle}
}

func modePriority(m Mode) int {
	switch m {
	case ModeShowingRecord:
		return 3
	case ModeAlreadyMarked:
		return 2
	case ModeChecking:
		return 1
	default:
		return 0
	}
}
