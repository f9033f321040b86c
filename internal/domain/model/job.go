package model

import (
	"sort"
	"time"
)

type VideoStatus string

const (
	VideoStatusQueued     VideoStatus = "queued"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// Terminal reports whether the status is final for a video. Terminal states
// are never overwritten by a later non-terminal event.
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

type JobStatus string

const (
	JobStatusInitializing       JobStatus = "initializing"
	JobStatusQueued             JobStatus = "queued"
	JobStatusProcessing         JobStatus = "processing"
	JobStatusCompleted          JobStatus = "completed"
	JobStatusPartiallyCompleted JobStatus = "partially_completed"
	JobStatusFailed             JobStatus = "failed"
)

// Finished reports whether results may be served for the job.
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusPartiallyCompleted || s == JobStatusFailed
}

// VideoState tracks one video inside a job.
type VideoState struct {
	ID          string         `json:"videoId"`
	Title       string         `json:"title"`
	Status      VideoStatus    `json:"status"`
	LastUpdated time.Time      `json:"lastUpdated"`
	Result      *VideoAnalysis `json:"results,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Job is one bulk submission spanning TotalVideos videos. TotalVideos is
// fixed at creation; Videos grows as the enqueue loop progresses or as the
// aggregator first observes an event for an unseen video, so
// len(Videos) <= TotalVideos until enqueueing completes.
type Job struct {
	ID          string
	ChannelID   string
	SubmittedAt time.Time
	TotalVideos int
	Status      JobStatus
	LastUpdated time.Time
	EnqueueDone bool
	Videos      map[string]VideoState
}

func NewJob(id, channelID string, totalVideos int, now time.Time) *Job {
	return &Job{
		ID:          id,
		ChannelID:   channelID,
		SubmittedAt: now,
		TotalVideos: totalVideos,
		Status:      JobStatusInitializing,
		LastUpdated: now,
		Videos:      make(map[string]VideoState, totalVideos),
	}
}

// Counts returns the multiset of statuses over attached videos.
func (j *Job) Counts() (completed, failed, processing, queued int) {
	for _, v := range j.Videos {
		switch v.Status {
		case VideoStatusCompleted:
			completed++
		case VideoStatusFailed:
			failed++
		case VideoStatusProcessing:
			processing++
		case VideoStatusQueued:
			queued++
		}
	}
	return
}

// DeriveStatus is the single source of truth for a job's overall status.
// It is a pure function of the attached video statuses against the fixed
// total; the stored Job.Status is only ever a cache of this value.
func DeriveStatus(total int, videos map[string]VideoState, enqueueDone bool) JobStatus {
	var c, f, p int
	for _, v := range videos {
		switch v.Status {
		case VideoStatusCompleted:
			c++
		case VideoStatusFailed:
			f++
		case VideoStatusProcessing:
			p++
		}
	}
	switch {
	case total > 0 && f == total:
		return JobStatusFailed
	case total > 0 && c == total:
		return JobStatusCompleted
	case c > 0 && p == 0:
		return JobStatusPartiallyCompleted
	case p > 0:
		return JobStatusProcessing
	case enqueueDone:
		return JobStatusQueued
	default:
		return JobStatusInitializing
	}
}

// Recompute refreshes the derived status and bumps LastUpdated.
func (j *Job) Recompute(now time.Time) {
	j.Status = DeriveStatus(j.TotalVideos, j.Videos, j.EnqueueDone)
	j.LastUpdated = now
}

// accepts reports whether an event for videoID may touch this job. Unseen
// ids are only attached while the job still has room; once all TotalVideos
// slots are taken, an id outside the enqueued set is dropped so the counts
// stay bounded by TotalVideos.
func (j *Job) accepts(videoID string) bool {
	if _, ok := j.Videos[videoID]; ok {
		return true
	}
	return len(j.Videos) < j.TotalVideos
}

// ApplyStatus upserts a video entry from a status event. A previously stored
// result is left untouched. Non-terminal updates arriving after a terminal
// state are ignored; terminal updates are idempotent.
func (j *Job) ApplyStatus(videoID, title string, status VideoStatus, ts time.Time, errMsg string) {
	if !j.accepts(videoID) {
		return
	}
	cur, ok := j.Videos[videoID]
	if ok && cur.Status.Terminal() && !status.Terminal() {
		return
	}
	if !ok {
		cur = VideoState{ID: videoID, Title: title}
	}
	if title != "" {
		cur.Title = title
	}
	cur.Status = status
	cur.LastUpdated = ts
	cur.Error = errMsg
	j.Videos[videoID] = cur
	j.Recompute(ts)
}

// ApplyResult upserts a video entry from a result event: the video becomes
// completed and the analysis payload is stored. Applying the same result
// twice yields an identical state.
func (j *Job) ApplyResult(videoID string, ts time.Time, result VideoAnalysis) {
	if !j.accepts(videoID) {
		return
	}
	cur, ok := j.Videos[videoID]
	if !ok {
		cur = VideoState{ID: videoID}
	}
	cur.Status = VideoStatusCompleted
	cur.LastUpdated = ts
	cur.Error = ""
	cur.Result = &result
	j.Videos[videoID] = cur
	j.Recompute(ts)
}

// CompletedResults returns the videos that finished with a stored result,
// in video-id order so the listing is stable between polls.
func (j *Job) CompletedResults() []VideoState {
	out := make([]VideoState, 0, len(j.Videos))
	for _, v := range j.Videos {
		if v.Status == VideoStatusCompleted && v.Result != nil {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Clone returns a deep copy so store readers never alias aggregator state.
func (j *Job) Clone() *Job {
	cp := *j
	cp.Videos = make(map[string]VideoState, len(j.Videos))
	for id, v := range j.Videos {
		if v.Result != nil {
			r := *v.Result
			v.Result = &r
		}
		cp.Videos[id] = v
	}
	return &cp
}
