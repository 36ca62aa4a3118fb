package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hammamikhairi/tannoy/internal/assets"
	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/logger"
	"github.com/hammamikhairi/tannoy/internal/radio"
	"github.com/hammamikhairi/tannoy/internal/registry"
	"github.com/hammamikhairi/tannoy/internal/scheduler"
)

// fakeSynth returns canned audio bytes, or a configured error.
type fakeSynth struct {
	calls atomic.Int64
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("audio:" + text), nil
}

// idleBackend never plays anything; handles report not playing.
type idleBackend struct{}

type idleHandle struct{}

func (idleHandle) Play()         {}
func (idleHandle) Playing() bool { return false }
func (idleHandle) SetVolume(int) {}
func (idleHandle) Close() error  { return nil }

func (idleBackend) NewHandle([]byte) (domain.Handle, error) { return idleHandle{}, nil }

type quickPlayer struct{}

func (quickPlayer) Play(domain.Line) error { return nil }

type fixture struct {
	server *httptest.Server
	synth  *fakeSynth
	store  *assets.Store
	sched  *scheduler.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	dir := t.TempDir()

	cfgStore, err := config.Load(filepath.Join(dir, "config.yaml"), log)
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	store, err := assets.NewStore(filepath.Join(dir, "audio_files"), log)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	lines, err := registry.Load(filepath.Join(dir, "voice_lines.json"), store, log)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	radioPlayer := radio.NewPlayer(idleBackend{}, cfgStore.Current, log)
	t.Cleanup(radioPlayer.Stop)

	sched := scheduler.New(lines, quickPlayer{}, radioPlayer, store, cfgStore.Current, log)
	t.Cleanup(func() { sched.Stop() })

	synth := &fakeSynth{}
	srv := NewServer(lines, synth, sched, radioPlayer, store, cfgStore, log)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{server: ts, synth: synth, store: store, sched: sched}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestRootHealthCheck(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, "GET", "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAddAndListLines(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/lines", map[string]string{"text": "now boarding"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	line := decodeBody[domain.Line](t, resp)
	if line.ID != 1 || line.Text != "now boarding" || !line.Active {
		t.Fatalf("line = %+v", line)
	}
	if !f.store.Exists(line.Asset) {
		t.Fatalf("asset %s not stored", line.Asset)
	}

	resp = f.do(t, "GET", "/lines", nil)
	lines := decodeBody[[]domain.Line](t, resp)
	if len(lines) != 1 {
		t.Fatalf("lines = %v", lines)
	}
}

func TestAddLineSynthFailure(t *testing.T) {
	f := newFixture(t)
	f.synth.err = fmt.Errorf("%w: API key", domain.ErrNotConfigured)

	resp := f.do(t, "POST", "/lines", map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEditUnknownLineSkipsSynthesis(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "PUT", "/lines/42", map[string]string{"text": "new text"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if f.synth.calls.Load() != 0 {
		t.Fatal("synthesis attempted for unknown line")
	}
}

func TestLineAudioDownload(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/lines", map[string]string{"text": "hello"})

	resp := f.do(t, "GET", "/lines/1/audio", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("content type = %q", ct)
	}

	resp = f.do(t, "GET", "/lines/9/audio", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	resp = f.do(t, "GET", "/lines/zero/audio", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestToggleRequiresIDs(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, "POST", "/lines/toggle", map[string]any{"ids": []int{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestToggleAndRemoveFlow(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/lines", map[string]string{"text": "one"})
	f.do(t, "POST", "/lines", map[string]string{"text": "two"})
	f.do(t, "POST", "/lines", map[string]string{"text": "three"})

	resp := f.do(t, "POST", "/lines/toggle", map[string]any{"ids": []int{1, 2}})
	toggled := decodeBody[toggleResponse](t, resp)
	if toggled.ChangedCount != 2 {
		t.Fatalf("changed = %d", toggled.ChangedCount)
	}

	resp = f.do(t, "POST", "/lines/remove", map[string]any{"ids": []int{2}})
	removed := decodeBody[removeResponse](t, resp)
	if removed.RemovedCount != 1 {
		t.Fatalf("removed = %d", removed.RemovedCount)
	}

	resp = f.do(t, "GET", "/lines", nil)
	lines := decodeBody[[]domain.Line](t, resp)
	if len(lines) != 2 || lines[1].ID != 2 || lines[1].Text != "three" {
		t.Fatalf("lines after remove = %v", lines)
	}

	resp = f.do(t, "POST", "/lines/remove-all", nil)
	if got := decodeBody[removeResponse](t, resp).RemovedCount; got != 2 {
		t.Fatalf("remove-all = %d", got)
	}
}

func TestSchedulerEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "GET", "/scheduler/status", nil)
	if decodeBody[schedulerStatusResponse](t, resp).IsRunning {
		t.Fatal("running before start")
	}

	resp = f.do(t, "POST", "/scheduler/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	resp = f.do(t, "POST", "/scheduler/start", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double start status = %d, want 409", resp.StatusCode)
	}

	resp = f.do(t, "POST", "/scheduler/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}

	resp = f.do(t, "GET", "/scheduler/status", nil)
	if decodeBody[schedulerStatusResponse](t, resp).IsRunning {
		t.Fatal("running after stop")
	}
}

func TestRadioStartWithoutTracks(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/radio/start", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp = f.do(t, "GET", "/radio/status", nil)
	if decodeBody[radioStatusResponse](t, resp).IsPlaying {
		t.Fatal("radio reports playing")
	}

	resp = f.do(t, "POST", "/radio/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "GET", "/settings", nil)
	cfg := decodeBody[config.Config](t, resp)
	if cfg.Volumes.Radio != 0.5 {
		t.Fatalf("default radio volume = %v", cfg.Volumes.Radio)
	}

	resp = f.do(t, "PUT", "/settings", map[string]any{
		"volumes": map[string]any{"radio": 0.7},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	updated := decodeBody[config.Config](t, resp)
	if updated.Volumes.Radio != 0.7 {
		t.Fatalf("radio volume = %v, want 0.7", updated.Volumes.Radio)
	}
	if updated.Volumes.Master != 1.0 {
		t.Fatalf("master clobbered: %v", updated.Volumes.Master)
	}
}

func TestSettingsRejectsEmptyAndInvalid(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "PUT", "/settings", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty update status = %d, want 400", resp.StatusCode)
	}

	resp = f.do(t, "PUT", "/settings", map[string]any{
		"volumes": map[string]any{"radio": 5.0},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid update status = %d, want 400", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/lines", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}
