package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/gallery"
	"github.com/facegate/facegate/internal/monitor"
	"github.com/facegate/facegate/internal/pipeline"
	"github.com/facegate/facegate/internal/vision"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Door             string `json:"door"`
	NotificationSent bool   `json:"notification_sent"`
	LastMatch        string `json:"last_match,omitempty"`
	Subjects         int    `json:"subjects"`
	DroppedFrames    uint64 `json:"dropped_frames"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.controller.Snapshot()

	door := "locked"
	if status.DoorOpen {
		door = "open"
	}

	respondJSON(w, http.StatusOK, statusResponse{
		Door:             door,
		NotificationSent: status.NotificationSent,
		LastMatch:        status.LastMatchName,
		Subjects:         s.gallery.Count(),
		DroppedFrames:    s.monitor.Drops(),
	})
}

type subjectResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	identities := s.gallery.All()
	subjects := make([]subjectResponse, 0, len(identities))
	for _, identity := range identities {
		subjects = append(subjects, subjectResponse{ID: identity.ID, Name: identity.Name})
	}
	respondJSON(w, http.StatusOK, subjects)
}

type registerRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.monitor.EnrollFromCamera(r.Context(), req.Name)
	if err != nil {
		s.registerError(w, req.Name, err)
		return
	}

	s.log.Info().Str("name", req.Name).Int64("id", id).Msg("subject registered")
	respondJSON(w, http.StatusCreated, subjectResponse{ID: id, Name: req.Name})
}

// registerError maps enrollment failures onto HTTP statuses so the UI
// can show why the capture did not go through.
func (s *Server) registerError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyName):
		respondError(w, http.StatusBadRequest, "name must not be empty")
	case errors.Is(err, monitor.ErrNoFrame):
		respondError(w, http.StatusServiceUnavailable, "no camera frame available yet")
	case errors.Is(err, pipeline.ErrNoFaceDetected):
		respondError(w, http.StatusUnprocessableEntity, "no face detected")
	case errors.Is(err, pipeline.ErrLowConfidence):
		respondError(w, http.StatusUnprocessableEntity, "face detection confidence too low")
	case errors.Is(err, vision.ErrInference):
		respondError(w, http.StatusServiceUnavailable, "face model unavailable")
	case errors.Is(err, gallery.ErrInvalidVector):
		respondError(w, http.StatusInternalServerError, "embedding has wrong dimensionality")
	default:
		s.log.Error().Err(err).Str("name", name).Msg("registration failed")
		respondError(w, http.StatusInternalServerError, "registration failed")
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing subject name")
		return
	}

	deleted, err := s.gallery.DeleteByName(r.Context(), name)
	if err != nil {
		s.log.Error().Err(err).Str("name", name).Msg("deletion failed")
		respondError(w, http.StatusInternalServerError, "deletion failed")
		return
	}

	// 0 deleted is not an error, just nothing to do.
	respondJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// handleEvents streams door state transitions as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.controller.Subscribe()
	defer s.controller.Unsubscribe(events)

	// Current state first so a fresh client does not wait for a transition.
	status := s.controller.Snapshot()
	door := "locked"
	if status.DoorOpen {
		door = "open"
	}
	fmt.Fprintf(w, "event: door\ndata: %q\n\n", door)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: door\ndata: %q\n\n", ev.State.String())
			flusher.Flush()
		}
	}
}
