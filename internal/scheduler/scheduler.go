package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/logger"
)

const (
	// emptyWait is the pause before re-checking an empty active set.
	emptyWait = 30 * time.Second
	// panicBackoff is the pause after a recovered iteration panic.
	panicBackoff = 15 * time.Second
	// stopTimeout bounds how long Stop waits for the worker to exit.
	stopTimeout = 10 * time.Second
)

// Player plays one voice line synchronously.
type Player interface {
	Play(line domain.Line) error
}

// Radio is the background-track player as seen by the scheduler.
type Radio interface {
	Start() error
	Playing() bool
	Stop()
}

// AssetChecker reports whether a line's audio asset resolves.
type AssetChecker interface {
	Exists(name string) bool
}

// worker is one background execution context. The stop channel is
// closed at most once; done closes when the loop exits.
type worker struct {
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (w *worker) signalStop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *worker) exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Scheduler runs the voice-line rotation in a single background worker.
// At most one worker runs at a time.
type Scheduler struct {
	source   domain.LineSource
	player   Player
	radio    Radio
	check    AssetChecker
	snapshot func() config.Config
	log      *logger.Logger

	mu     sync.Mutex
	worker *worker

	// failures counts consecutive playback failures per line, feeding
	// the optional auto-deactivation policy.
	failures map[int]int
}

// New creates a scheduler. It does not start the worker.
func New(
	source domain.LineSource,
	player Player,
	radioPlayer Radio,
	check AssetChecker,
	snapshot func() config.Config,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		source:   source,
		player:   player,
		radio:    radioPlayer,
		check:    check,
		snapshot: snapshot,
		log:      log,
		failures: make(map[int]int),
	}
}

// Start launches the worker. Fails with ErrAlreadyRunning when a worker
// is active; a second instance is never queued.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worker != nil && !s.worker.exited() {
		return domain.ErrAlreadyRunning
	}

	w := &worker{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.worker = w
	go s.run(w)

	s.log.Info("scheduler started")
	return nil
}

// Stop signals the worker and waits for it to exit, up to a bounded
// timeout. A no-op success when not running. On timeout the stop signal
// stays delivered but the stuck worker is reported.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	w := s.worker
	s.mu.Unlock()

	if w == nil || w.exited() {
		return nil
	}

	w.signalStop()

	select {
	case <-w.done:
		s.log.Info("scheduler stopped")
		return nil
	case <-time.After(stopTimeout):
		s.log.Error("scheduler worker did not exit within %v", stopTimeout)
		return domain.ErrStopTimeout
	}
}

// Running reports whether the worker is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worker != nil && !s.worker.exited()
}

// run is the worker loop. It owns the radio for its lifetime: started
// opportunistically each iteration, stopped on exit.
func (s *Scheduler) run(w *worker) {
	defer close(w.done)
	defer s.radio.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		s.iterate(w.stopCh)
	}
}

// iterate runs one loop body with panic containment. A panicking
// iteration is logged and followed by a backoff; it never kills the
// worker.
func (s *Scheduler) iterate(stopCh <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduler iteration panicked: %v", r)
			wait(stopCh, panicBackoff)
		}
	}()

	if !s.radio.Playing() {
		if err := s.radio.Start(); err != nil {
			s.log.Warn("scheduler: radio unavailable: %v", err)
		}
	}

	lines := s.playableLines()
	if len(lines) == 0 {
		s.log.Debug("scheduler: no playable lines, waiting")
		wait(stopCh, emptyWait)
		return
	}

	line := lines[rand.Intn(len(lines))]
	if err := s.player.Play(line); err != nil {
		s.log.Error("scheduler: line %d failed: %v", line.ID, err)
		s.recordFailure(line.ID)
	} else {
		s.clearFailures(line.ID)
	}

	cfg := s.snapshot()
	wait(stopCh, time.Duration(cfg.Radio.IntervalSeconds)*time.Second)
}

// playableLines snapshots the active lines whose assets resolve.
func (s *Scheduler) playableLines() []domain.Line {
	var out []domain.Line
	for _, l := range s.source.Active() {
		if s.check.Exists(l.Asset) {
			out = append(out, l)
		}
	}
	return out
}

// recordFailure bumps the consecutive-failure count and deactivates the
// line when the configured threshold is reached. Threshold 0 disables
// the policy.
func (s *Scheduler) recordFailure(id int) {
	s.mu.Lock()
	s.failures[id]++
	count := s.failures[id]
	s.mu.Unlock()

	threshold := s.snapshot().Radio.DeactivateAfter
	if threshold <= 0 || count < threshold {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.source.Deactivate(ctx, id); err != nil {
		s.log.Warn("scheduler: deactivating line %d: %v", id, err)
		return
	}
	s.log.Warn("scheduler: line %d deactivated after %d consecutive failures", id, count)
	s.clearFailures(id)
}

func (s *Scheduler) clearFailures(id int) {
	s.mu.Lock()
	delete(s.failures, id)
	s.mu.Unlock()
}

// wait sleeps for d unless the stop channel closes first. Reports
// whether the full duration elapsed.
func wait(stopCh <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-stopCh:
		return false
	case <-time.After(d):
		return true
	}
}
