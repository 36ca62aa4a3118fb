package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/logger"
)

type fakeSource struct {
	mu          sync.Mutex
	lines       []domain.Line
	deactivated []int
}

func (f *fakeSource) Active() []domain.Line {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Line
	for _, l := range f.lines {
		if l.Active {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeSource) Deactivate(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].ID == id {
			f.lines[i].Active = false
		}
	}
	f.deactivated = append(f.deactivated, id)
	return nil
}

func (f *fakeSource) deactivatedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.deactivated...)
}

type fakePlayer struct {
	plays   atomic.Int64
	active  atomic.Int64
	maxSeen atomic.Int64
	err     error
	panics  bool
}

func (f *fakePlayer) Play(line domain.Line) error {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}

	f.plays.Add(1)
	if f.panics {
		panic("player exploded")
	}
	time.Sleep(time.Millisecond)
	return f.err
}

type fakeRadio struct {
	playing atomic.Bool
	starts  atomic.Int64
	stops   atomic.Int64
	err     error
}

func (f *fakeRadio) Start() error {
	f.starts.Add(1)
	if f.err != nil {
		return f.err
	}
	f.playing.Store(true)
	return nil
}

func (f *fakeRadio) Playing() bool { return f.playing.Load() }

func (f *fakeRadio) Stop() {
	f.stops.Add(1)
	f.playing.Store(false)
}

type allAssets struct{}

func (allAssets) Exists(string) bool { return true }

type someAssets map[string]bool

func (s someAssets) Exists(name string) bool { return s[name] }

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Radio.IntervalSeconds = 0
	return cfg
}

func testLines() []domain.Line {
	return []domain.Line{
		{ID: 1, Text: "one", Asset: "line_1.mp3", Active: true},
		{ID: 2, Text: "two", Asset: "line_2.mp3", Active: true},
	}
}

func newTestScheduler(source *fakeSource, player Player, r Radio, check AssetChecker, snapshot func() config.Config) *Scheduler {
	if check == nil {
		check = allAssets{}
	}
	if snapshot == nil {
		snapshot = fastConfig
	}
	return New(source, player, r, check, snapshot, logger.New(logger.LevelOff, nil))
}

func TestStartWhileRunningFails(t *testing.T) {
	s := newTestScheduler(&fakeSource{}, &fakePlayer{}, &fakeRadio{}, nil, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := newTestScheduler(&fakeSource{}, &fakePlayer{}, &fakeRadio{}, nil, nil)

	if err := s.Stop(); err != nil {
		t.Fatalf("stop before start: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if s.Running() {
		t.Fatal("still running after stop")
	}
}

func TestRestartAfterStop(t *testing.T) {
	s := newTestScheduler(&fakeSource{}, &fakePlayer{}, &fakeRadio{}, nil, nil)

	for i := 0; i < 3; i++ {
		if err := s.Start(); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if err := s.Stop(); err != nil {
			t.Fatalf("stop %d: %v", i, err)
		}
	}
}

func TestPlaysActiveLines(t *testing.T) {
	source := &fakeSource{lines: testLines()}
	player := &fakePlayer{}
	s := newTestScheduler(source, player, &fakeRadio{}, nil, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for player.plays.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d plays", player.plays.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestOnlyOneWorkerPlays(t *testing.T) {
	source := &fakeSource{lines: testLines()}
	player := &fakePlayer{}
	s := newTestScheduler(source, player, &fakeRadio{}, nil, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if max := player.maxSeen.Load(); max > 1 {
		t.Fatalf("saw %d concurrent plays", max)
	}
}

func TestEmptyRegistryWaitIsInterruptible(t *testing.T) {
	s := newTestScheduler(&fakeSource{}, &fakePlayer{}, &fakeRadio{}, nil, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(100 * time.Millisecond) // let the worker enter the empty wait

	start := time.Now()
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("stop took %v, wait not interruptible", elapsed)
	}
}

func TestRadioLifecycleFollowsWorker(t *testing.T) {
	r := &fakeRadio{}
	s := newTestScheduler(&fakeSource{lines: testLines()}, &fakePlayer{}, r, nil, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for !r.Playing() {
		select {
		case <-deadline:
			t.Fatal("radio never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.Playing() {
		t.Fatal("radio still playing after scheduler stop")
	}
}

func TestRadioFailureDoesNotBlockLines(t *testing.T) {
	r := &fakeRadio{err: errors.New("device busy")}
	player := &fakePlayer{}
	s := newTestScheduler(&fakeSource{lines: testLines()}, player, r, nil, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for player.plays.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("no plays despite radio failure")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSkipsLinesWithoutAssets(t *testing.T) {
	lines := testLines()
	source := &fakeSource{lines: lines}
	player := &recordingPlayer{}
	check := someAssets{"line_2.mp3": true}
	s := newTestScheduler(source, player, &fakeRadio{}, check, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for player.count() < 5 {
		select {
		case <-deadline:
			t.Fatal("not enough plays")
		case <-time.After(10 * time.Millisecond):
		}
	}

	for _, id := range player.ids() {
		if id != 2 {
			t.Fatalf("played line %d whose asset is missing", id)
		}
	}
}

type recordingPlayer struct {
	mu     sync.Mutex
	played []int
}

func (r *recordingPlayer) Play(line domain.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, line.ID)
	return nil
}

func (r *recordingPlayer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.played)
}

func (r *recordingPlayer) ids() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.played...)
}

func TestRepeatedFailuresDeactivateLine(t *testing.T) {
	source := &fakeSource{lines: []domain.Line{
		{ID: 1, Text: "broken", Asset: "line_1.mp3", Active: true},
	}}
	player := &fakePlayer{err: errors.New("decode failed")}

	snapshot := func() config.Config {
		cfg := fastConfig()
		cfg.Radio.DeactivateAfter = 3
		return cfg
	}
	s := newTestScheduler(source, player, &fakeRadio{}, nil, snapshot)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for len(source.deactivatedIDs()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("line never deactivated after %d failures", player.plays.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
	if ids := source.deactivatedIDs(); ids[0] != 1 {
		t.Fatalf("deactivated = %v", ids)
	}
	if player.plays.Load() < 3 {
		t.Fatalf("deactivated after only %d failures", player.plays.Load())
	}
}

func TestWorkerSurvivesPanic(t *testing.T) {
	source := &fakeSource{lines: testLines()}
	player := &fakePlayer{panics: true}
	s := newTestScheduler(source, player, &fakeRadio{}, nil, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for player.plays.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("no play attempt")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !s.Running() {
		t.Fatal("worker died on panic")
	}

	// The post-panic backoff must still be interruptible.
	start := time.Now()
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("stop took %v", elapsed)
	}
}
