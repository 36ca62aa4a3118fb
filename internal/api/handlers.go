package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/hammamikhairi/tannoy/internal/config"
)

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type lineTextRequest struct {
	Text string `json:"text"`
}

type toggleRequest struct {
	IDs   []int `json:"ids"`
	State *bool `json:"state,omitempty"`
}

type toggleAllRequest struct {
	State bool `json:"state"`
}

type toggleResponse struct {
	ChangedCount int    `json:"changed_count"`
	Message      string `json:"message"`
}

type removeRequest struct {
	IDs []int `json:"ids"`
}

type removeResponse struct {
	RemovedCount int    `json:"removed_count"`
	Message      string `json:"message"`
}

type schedulerStatusResponse struct {
	IsRunning bool `json:"is_running"`
}

type radioStatusResponse struct {
	IsPlaying bool   `json:"is_playing"`
	Track     string `json:"track,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "tannoy is running",
	})
}

func (s *Server) handleListLines(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.lines.List())
}

func (s *Server) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req lineTextRequest
	if !s.decode(w, r, &req) {
		return
	}

	audio, err := s.synth.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.fail(w, err)
		return
	}

	line, err := s.lines.Add(req.Text, audio)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, line)
}

func (s *Server) handleEditLine(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lineID(w, r)
	if !ok {
		return
	}

	var req lineTextRequest
	if !s.decode(w, r, &req) {
		return
	}

	// Look the line up first so a bad ID fails before synthesis spends
	// an API call.
	if _, err := s.lines.Get(id); err != nil {
		s.fail(w, err)
		return
	}

	audio, err := s.synth.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.fail(w, err)
		return
	}

	line, err := s.lines.Edit(id, req.Text, audio)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, line)
}

func (s *Server) handleLineAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lineID(w, r)
	if !ok {
		return
	}

	line, err := s.lines.Get(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !s.store.Exists(line.Asset) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("audio file for line %d not found", id))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, s.store.Path(line.Asset))
}

func (s *Server) handleToggleLines(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "the list of line IDs cannot be empty")
		return
	}

	changed, err := s.lines.Toggle(req.IDs, req.State)
	if err != nil {
		s.fail(w, err)
		return
	}

	verb := "toggled"
	if req.State != nil {
		verb = "deactivated"
		if *req.State {
			verb = "activated"
		}
	}
	s.writeJSON(w, http.StatusOK, toggleResponse{
		ChangedCount: len(changed),
		Message:      fmt.Sprintf("successfully %s %d lines", verb, len(changed)),
	})
}

func (s *Server) handleToggleAll(w http.ResponseWriter, r *http.Request) {
	var req toggleAllRequest
	if !s.decode(w, r, &req) {
		return
	}

	changed, err := s.lines.ToggleAll(req.State)
	if err != nil {
		s.fail(w, err)
		return
	}

	verb := "deactivated"
	if req.State {
		verb = "activated"
	}
	s.writeJSON(w, http.StatusOK, toggleResponse{
		ChangedCount: len(changed),
		Message:      fmt.Sprintf("all lines %s, %d changed", verb, len(changed)),
	})
}

func (s *Server) handleRemoveLines(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "the list of line IDs cannot be empty")
		return
	}

	removed, err := s.lines.Remove(req.IDs)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, removeResponse{
		RemovedCount: len(removed),
		Message:      fmt.Sprintf("removed %d lines", len(removed)),
	})
}

func (s *Server) handleRemoveAll(w http.ResponseWriter, r *http.Request) {
	removed, err := s.lines.RemoveAll()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, removeResponse{
		RemovedCount: len(removed),
		Message:      fmt.Sprintf("removed all %d lines", len(removed)),
	})
}

func (s *Server) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Start(); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "scheduler started"})
}

func (s *Server) handleSchedulerStop(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Stop(); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "scheduler stopped"})
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, schedulerStatusResponse{IsRunning: s.sched.Running()})
}

func (s *Server) handleRadioStart(w http.ResponseWriter, r *http.Request) {
	if err := s.radio.Start(); err != nil {
		s.fail(w, err)
		return
	}
	msg := "radio started"
	if track := s.radio.Track(); track != "" {
		msg = "playing: " + track
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: msg})
}

func (s *Server) handleRadioStop(w http.ResponseWriter, r *http.Request) {
	s.radio.Stop()
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "radio stopped"})
}

func (s *Server) handleRadioStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, radioStatusResponse{
		IsPlaying: s.radio.Playing(),
		Track:     s.radio.Track(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.config.Current())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update config.Update
	if !s.decode(w, r, &update) {
		return
	}
	if update.Empty() {
		s.writeError(w, http.StatusBadRequest, "no settings provided for update")
		return
	}

	updated, err := s.config.Apply(update)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Volume changes reach the live radio stream immediately; effect
	// parameters only apply from the next announcement on.
	if v := update.Volumes; v != nil && (v.Master != nil || v.Radio != nil) {
		s.radio.SetVolume(int(updated.Volumes.Master * updated.Volumes.Radio * 100))
	}

	s.writeJSON(w, http.StatusOK, updated)
}

// lineID parses the {id} path segment, requiring a positive integer.
func (s *Server) lineID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		s.writeError(w, http.StatusBadRequest, "line ID must be a positive integer")
		return 0, false
	}
	return id, true
}
