// Package registry owns the voice-line catalog: an ordered list of
// lines persisted as JSON, with IDs kept dense (1..N) so the web UI can
// show stable, human-friendly numbering. Asset files are named after
// the line ID and renamed whenever IDs are compacted, keeping the
// catalog and the audio directory in lockstep.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/hammamikhairi/tannoy/internal/assets"
	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/logger"
)

// Registry is the persistent voice-line catalog. All methods are safe
// for concurrent use; a single mutex guards both the in-memory list and
// the JSON file.
type Registry struct {
	mu    sync.Mutex
	path  string
	lines []domain.Line
	store *assets.Store
	log   *logger.Logger
}

var _ domain.LineSource = (*Registry)(nil)

// AssetName returns the canonical asset file name for a line ID.
func AssetName(id int) string {
	return fmt.Sprintf("line_%d.mp3", id)
}

// Load reads the catalog from path, creating an empty one if the file
// does not exist. A corrupt file is logged and treated as empty rather
// than blocking startup.
func Load(path string, store *assets.Store, log *logger.Logger) (*Registry, error) {
	r := &Registry{path: path, store: store, log: log}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read line catalog: %w", err)
	}

	if err := json.Unmarshal(data, &r.lines); err != nil {
		log.Error("line catalog %s is corrupt, starting empty: %v", path, err)
		r.lines = nil
		return r, nil
	}
	sort.Slice(r.lines, func(i, j int) bool { return r.lines[i].ID < r.lines[j].ID })

	log.Info("loaded %d voice lines from %s", len(r.lines), path)
	return r, nil
}

// List returns a copy of all lines in ID order.
func (r *Registry) List() []domain.Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Line(nil), r.lines...)
}

// Get returns the line with the given ID.
func (r *Registry) Get(id int) (domain.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Line{}, fmt.Errorf("line %d: %w", id, domain.ErrNotFound)
}

// Active returns a copy of the lines currently switched on.
func (r *Registry) Active() []domain.Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Line
	for _, l := range r.lines {
		if l.Active {
			out = append(out, l)
		}
	}
	return out
}

// Add appends a new active line with the given text and audio, assigns
// the next dense ID, and persists both the asset and the catalog.
func (r *Registry) Add(text string, audio []byte) (domain.Line, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Line{}, domain.ErrEmptyText
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	line := domain.Line{
		ID:     len(r.lines) + 1,
		Text:   text,
		Active: true,
	}
	line.Asset = AssetName(line.ID)

	if err := r.store.Save(line.Asset, audio); err != nil {
		return domain.Line{}, err
	}

	r.lines = append(r.lines, line)
	if err := r.save(); err != nil {
		return domain.Line{}, err
	}
	r.log.Info("added line %d: %q", line.ID, line.Text)
	return line, nil
}

// Edit replaces the text and audio of an existing line, keeping its ID
// and active state.
func (r *Registry) Edit(id int, text string, audio []byte) (domain.Line, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Line{}, domain.ErrEmptyText
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return domain.Line{}, fmt.Errorf("line %d: %w", id, domain.ErrNotFound)
	}

	if err := r.store.Save(r.lines[idx].Asset, audio); err != nil {
		return domain.Line{}, err
	}

	r.lines[idx].Text = text
	if err := r.save(); err != nil {
		return domain.Line{}, err
	}
	r.log.Info("edited line %d: %q", id, text)
	return r.lines[idx], nil
}

// Toggle flips (or forces, when state is non-nil) the active flag of the
// given lines. Returns the IDs whose state actually changed. Unknown IDs
// are ignored, matching bulk-toggle semantics.
func (r *Registry) Toggle(ids []int, state *bool) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.toggleLocked(ids, state)
}

func (r *Registry) toggleLocked(ids []int, state *bool) ([]int, error) {
	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var changed []int
	for i := range r.lines {
		if !wanted[r.lines[i].ID] {
			continue
		}
		target := !r.lines[i].Active
		if state != nil {
			target = *state
		}
		if r.lines[i].Active != target {
			r.lines[i].Active = target
			changed = append(changed, r.lines[i].ID)
		}
	}

	if len(changed) == 0 {
		return nil, nil
	}
	if err := r.save(); err != nil {
		return nil, err
	}
	return changed, nil
}

// ToggleAll forces every line to the given state and returns the IDs
// that changed.
func (r *Registry) ToggleAll(state bool) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, len(r.lines))
	for i, l := range r.lines {
		ids[i] = l.ID
	}
	return r.toggleLocked(ids, &state)
}

// Remove deletes the given lines and their assets, then compacts the
// remaining IDs back to 1..N, renaming assets to match. Returns the IDs
// that were removed.
func (r *Registry) Remove(ids []int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(ids)
}

func (r *Registry) removeLocked(ids []int) ([]int, error) {
	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var removed []int
	var kept []domain.Line
	for _, l := range r.lines {
		if wanted[l.ID] {
			removed = append(removed, l.ID)
			if err := r.store.Delete(l.Asset); err != nil {
				r.log.Warn("could not delete %s: %v", l.Asset, err)
			}
			continue
		}
		kept = append(kept, l)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	// Compact IDs and bring the asset names along.
	for i := range kept {
		newID := i + 1
		if kept[i].ID == newID {
			continue
		}
		newAsset := AssetName(newID)
		if r.store.Exists(kept[i].Asset) {
			if err := r.store.Rename(kept[i].Asset, newAsset); err != nil {
				r.log.Warn("could not rename %s: %v", kept[i].Asset, err)
			}
		}
		kept[i].ID = newID
		kept[i].Asset = newAsset
	}

	r.lines = kept
	if err := r.save(); err != nil {
		return nil, err
	}
	r.log.Info("removed %d lines", len(removed))
	return removed, nil
}

// RemoveAll deletes every line and asset.
func (r *Registry) RemoveAll() ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, len(r.lines))
	for i, l := range r.lines {
		ids[i] = l.ID
	}
	return r.removeLocked(ids)
}

// Deactivate switches a single line off. Used by the scheduler when a
// line keeps failing to play.
func (r *Registry) Deactivate(_ context.Context, id int) error {
	off := false
	changed, err := r.Toggle([]int{id}, &off)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		// Already off or unknown; distinguish for the caller.
		if _, err := r.Get(id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) indexOf(id int) int {
	for i, l := range r.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// save writes the catalog to disk. Caller holds the mutex.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.lines, "", "  ")
	if err != nil {
		return fmt.Errorf("encode line catalog: %w", err)
	}
	if len(r.lines) == 0 {
		data = []byte("[]")
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write line catalog: %w", err)
	}
	return nil
}
