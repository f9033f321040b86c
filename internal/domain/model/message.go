package model

import "time"

// Queue message type discriminators for the results queue.
const (
	MessageTypeStatusUpdate = "status_update"
	MessageTypeVideoResults = "video_results"
)

// WorkItem is one unit of work on the work queue: a single video with its
// detail already fetched, so workers never touch the video source.
type WorkItem struct {
	JobID     string      `json:"jobId"`
	ChannelID string      `json:"channelId"`
	Video     VideoDetail `json:"video"`
	Timestamp time.Time   `json:"timestamp"`
}

// Envelope is the minimal decode of a results-queue message, enough to
// dispatch on Type before committing to a full decode.
type Envelope struct {
	Type string `json:"type"`
}

// StatusUpdate reports a per-video status transition from a worker.
type StatusUpdate struct {
	Type      string      `json:"type"`
	JobID     string      `json:"jobId"`
	ChannelID string      `json:"channelId"`
	VideoID   string      `json:"videoId"`
	Status    VideoStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Error     string      `json:"error,omitempty"`
}

// VideoResult carries the analysis payload for a completed video.
type VideoResult struct {
	Type      string        `json:"type"`
	JobID     string        `json:"jobId"`
	ChannelID string        `json:"channelId"`
	VideoID   string        `json:"videoId"`
	Timestamp time.Time     `json:"timestamp"`
	Results   VideoAnalysis `json:"results"`
}

func NewStatusUpdate(jobID, channelID, videoID string, status VideoStatus, errMsg string) StatusUpdate {
	return StatusUpdate{
		Type:      MessageTypeStatusUpdate,
		JobID:     jobID,
		ChannelID: channelID,
		VideoID:   videoID,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Error:     errMsg,
	}
}

func NewVideoResult(jobID, channelID, videoID string, results VideoAnalysis) VideoResult {
	return VideoResult{
		Type:      MessageTypeVideoResults,
		JobID:     jobID,
		ChannelID: channelID,
		VideoID:   videoID,
		Timestamp: time.Now().UTC(),
		Results:   results,
	}
}
