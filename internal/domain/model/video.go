package model

import "time"

// Video is the cheap listing entry returned by the video source.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
}

// VideoDetail is a Video augmented with the heavy per-video payload
// (top-level comments and the caption transcript) fetched before enqueueing.
type VideoDetail struct {
	Video
	Comments    []string `json:"comments,omitempty"`
	CaptionText string   `json:"captionText,omitempty"`
}

// VideoAnalysis is the analyzer output for a single video. Adapters must
// return a structurally valid value even when the provider call fails.
type VideoAnalysis struct {
	Summary        string   `json:"summary"`
	SentimentScore float64  `json:"sentimentScore"`
	TopTopics      []string `json:"topTopics"`
	Suggestions    []string `json:"suggestions"`
}

// Degraded builds the fallback analysis used when a provider errors out.
func Degraded(note string) VideoAnalysis {
	return VideoAnalysis{
		Summary:        "analysis unavailable: " + note,
		SentimentScore: 0,
		TopTopics:      []string{},
		Suggestions:    []string{},
	}
}
