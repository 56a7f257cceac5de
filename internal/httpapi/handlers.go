package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"revoice/internal/api"
	"revoice/internal/ingest"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
	"revoice/internal/stage"
	"revoice/internal/videostore"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.controller.Stats(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.controller.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := api.DaemonStatus{
		Running:  true,
		PID:      os.Getpid(),
		InFlight: s.controller.InFlightCount(),
		Stats:    api.FromStats(stats),
	}
	if s.health != nil {
		payload.StageHealth = api.FromStageHealth(s.health(r.Context()))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleAddVideo(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		s.writeError(w, http.StatusServiceUnavailable, "ingest not available")
		return
	}
	var req api.AddVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	video, err := s.ingest.Add(r.Context(), req.SourceURL, req.Process)
	if errors.Is(err, ingest.ErrAlreadyExists) {
		s.writeJSON(w, http.StatusConflict, api.FromVideo(video))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromVideo(video))
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.controller.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.VideoListResponse{
		Videos: api.SortVideosNewestFirst(api.FromVideos(videos)),
	})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	video, err := s.controller.Get(r.Context(), id)
	if err != nil {
		s.writeTriggerError(w, err)
		return
	}
	dto := api.FromVideo(video)
	for _, name := range s.controller.InFlight(id) {
		dto.InFlight = append(dto.InFlight, string(name))
	}
	s.writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.controller.Delete(r.Context(), id); err != nil {
		s.writeTriggerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	dispatched, err := s.controller.Process(r.Context(), id)
	if err != nil {
		s.writeTriggerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, triggerResponse(id, dispatched))
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	dispatched, err := s.controller.Reprocess(r.Context(), id)
	if err != nil {
		s.writeTriggerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, triggerResponse(id, dispatched))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req api.RetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	name, ok := stage.ParseName(req.Stage)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown stage: "+req.Stage)
		return
	}
	if err := s.controller.RetryStage(r.Context(), id, name); err != nil {
		s.writeTriggerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, triggerResponse(id, []stage.Name{name}))
}

func triggerResponse(id string, dispatched []stage.Name) api.TriggerResponse {
	resp := api.TriggerResponse{VideoID: id, Dispatched: make([]string, 0, len(dispatched))}
	for _, name := range dispatched {
		resp.Dispatched = append(resp.Dispatched, string(name))
	}
	return resp
}

// writeTriggerError maps controller and store errors to HTTP statuses:
// missing records are 404, state conflicts are 409, and everything else is a
// 500.
func (s *Server) writeTriggerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, videostore.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrAlreadyRunning),
		errors.Is(err, pipeline.ErrStageNotFailed),
		errors.Is(err, pipeline.ErrNotRetryable),
		errors.Is(err, pipeline.ErrStaleDependency):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, pipeline.ErrStopped):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode api response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: strings.TrimSpace(message)})
}
