package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// perVideoEstimate is the rough wall-clock cost of one video, used only for
// the human-facing estimate in the submit response.
const perVideoEstimate = 30 * time.Second

type analyzeRequest struct {
	ChannelID string `json:"channelId"`
}

type analyzeResponse struct {
	Status         string `json:"status"`
	JobID          string `json:"jobId"`
	Message        string `json:"message"`
	VideoCount     int    `json:"videoCount"`
	EstimatedTime  string `json:"estimatedTime"`
	CheckStatusURL string `json:"checkStatusUrl"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channelId is required"})
		return
	}

	job, err := s.uc.Submit(r.Context(), req.ChannelID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channelId is required"})
		case errors.Is(err, domain.ErrChannelNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error":   "not_found",
				"message": "no videos found for this channel",
			})
		default:
			s.log.Error().Err(err).Str("channel_id", req.ChannelID).Msg("submission failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start analysis"})
		}
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Status:         string(job.Status),
		JobID:          job.ID,
		Message:        fmt.Sprintf("analysis of %d videos started", job.TotalVideos),
		VideoCount:     job.TotalVideos,
		EstimatedTime:  estimate(job.TotalVideos),
		CheckStatusURL: s.baseURL + "/job-status/" + job.ID,
	})
}

func estimate(videos int) string {
	d := time.Duration(videos) * perVideoEstimate
	if d < time.Minute {
		return "under a minute"
	}
	return fmt.Sprintf("about %d minutes", int(d.Round(time.Minute)/time.Minute))
}

type jobStatusResponse struct {
	JobID           string                      `json:"jobId"`
	Status          model.JobStatus             `json:"status"`
	ChannelID       string                      `json:"channelId"`
	TotalVideos     int                         `json:"totalVideos"`
	CompletedVideos int                         `json:"completedVideos"`
	FailedVideos    int                         `json:"failedVideos"`
	Timestamp       time.Time                   `json:"timestamp"`
	LastUpdated     time.Time                   `json:"lastUpdated"`
	Videos          map[string]model.VideoState `json:"videos"`
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.findJob(w, r)
	if !ok {
		return
	}
	completed, failed, _, _ := job.Counts()
	writeJSON(w, http.StatusOK, jobStatusResponse{
		JobID:           job.ID,
		Status:          job.Status,
		ChannelID:       job.ChannelID,
		TotalVideos:     job.TotalVideos,
		CompletedVideos: completed,
		FailedVideos:    failed,
		Timestamp:       job.SubmittedAt,
		LastUpdated:     job.LastUpdated,
		Videos:          job.Videos,
	})
}

type videoResultEntry struct {
	VideoID string               `json:"videoId"`
	Title   string               `json:"title"`
	Results *model.VideoAnalysis `json:"results"`
}

type jobResultsResponse struct {
	JobID           string             `json:"jobId"`
	Status          model.JobStatus    `json:"status"`
	Message         string             `json:"message,omitempty"`
	TotalVideos     int                `json:"totalVideos"`
	CompletedVideos int                `json:"completedVideos"`
	FailedVideos    int                `json:"failedVideos"`
	Results         []videoResultEntry `json:"results,omitempty"`
}

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	job, ok := s.findJob(w, r)
	if !ok {
		return
	}
	completed, failed, _, _ := job.Counts()

	resp := jobResultsResponse{
		JobID:           job.ID,
		Status:          job.Status,
		TotalVideos:     job.TotalVideos,
		CompletedVideos: completed,
		FailedVideos:    failed,
	}

	if !job.Status.Finished() {
		resp.Message = "analysis still in progress, poll again shortly"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	// Only videos with a stored result make the list; a failed-only job
	// simply returns an empty set alongside its counters.
	for _, v := range job.CompletedResults() {
		resp.Results = append(resp.Results, videoResultEntry{
			VideoID: v.ID,
			Title:   v.Title,
			Results: v.Result,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) findJob(w http.ResponseWriter, r *http.Request) (*model.Job, bool) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.uc.Job(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		} else {
			s.log.Error().Err(err).Str("job_id", jobID).Msg("job lookup failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
		}
		return nil, false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
