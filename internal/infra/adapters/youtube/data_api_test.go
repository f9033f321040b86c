package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"
)

func newTestSource(t *testing.T, handler http.Handler) *DataAPISource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &DataAPISource{
		apiKey:      "test-key",
		base:        srv.URL,
		maxVideos:   50,
		maxComments: 100,
		client:      srv.Client(),
	}
}

// stubTimedText points the captions fetch at a local server for the test's
// lifetime.
func stubTimedText(t *testing.T, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	old := timedTextBase
	timedTextBase = srv.URL
	t.Cleanup(func() {
		timedTextBase = old
		srv.Close()
	})
}

func TestListVideos(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("channelId") != "chan-1" {
			t.Fatalf("channelId = %q", r.URL.Query().Get("channelId"))
		}
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"videoId":"v1"},"snippet":{"title":"First"}},
			{"id":{"videoId":""},"snippet":{"title":"A playlist, not a video"}},
			{"id":{"videoId":"v2"},"snippet":{"title":"Second"}}
		]}`))
	}))

	videos, err := src.List(context.Background(), "chan-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != "v1" || videos[1].Title != "Second" {
		t.Fatalf("videos = %+v", videos)
	}
}

func TestListChannelNotFound(t *testing.T) {
	t.Run("empty result", func(t *testing.T) {
		src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"items":[]}`))
		}))
		if _, err := src.List(context.Background(), "ghost"); !errors.Is(err, domain.ErrChannelNotFound) {
			t.Fatalf("err = %v, want ErrChannelNotFound", err)
		}
	})

	t.Run("api 404", func(t *testing.T) {
		src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		if _, err := src.List(context.Background(), "ghost"); !errors.Is(err, domain.ErrChannelNotFound) {
			t.Fatalf("err = %v, want ErrChannelNotFound", err)
		}
	})

	t.Run("api 500 is not a missing channel", func(t *testing.T) {
		src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		_, err := src.List(context.Background(), "chan-1")
		if err == nil || errors.Is(err, domain.ErrChannelNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestFetchDetail(t *testing.T) {
	stubTimedText(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<transcript><text>hello &amp; welcome</text><text> to the show </text></transcript>`))
	}))
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/commentThreads" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"items":[
			{"snippet":{"topLevelComment":{"snippet":{"textDisplay":"great stuff"}}}},
			{"snippet":{"topLevelComment":{"snippet":{"textDisplay":"more please"}}}}
		]}`))
	}))

	detail, err := src.FetchDetail(context.Background(), model.Video{ID: "v1", Title: "t"})
	if err != nil {
		t.Fatalf("fetch detail: %v", err)
	}
	if len(detail.Comments) != 2 || detail.Comments[0] != "great stuff" {
		t.Fatalf("comments = %v", detail.Comments)
	}
	if detail.CaptionText != "hello & welcome to the show" {
		t.Fatalf("captions = %q", detail.CaptionText)
	}
}

// Comments turned off on a video is not a failure; captions alone still make
// an analyzable detail.
func TestFetchDetailCommentsDisabled(t *testing.T) {
	stubTimedText(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<transcript><text>transcript only</text></transcript>`))
	}))
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	detail, err := src.FetchDetail(context.Background(), model.Video{ID: "v1"})
	if err != nil {
		t.Fatalf("fetch detail: %v", err)
	}
	if len(detail.Comments) != 0 || detail.CaptionText != "transcript only" {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestFetchDetailCommentsError(t *testing.T) {
	stubTimedText(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := src.FetchDetail(context.Background(), model.Video{ID: "v1"}); err == nil {
		t.Fatal("want error when comments cannot be fetched")
	}
}

// Captions are best effort; a failing timedtext endpoint leaves the
// transcript empty without failing the video.
func TestFetchDetailNoCaptions(t *testing.T) {
	stubTimedText(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))

	detail, err := src.FetchDetail(context.Background(), model.Video{ID: "v1"})
	if err != nil {
		t.Fatalf("fetch detail: %v", err)
	}
	if detail.CaptionText != "" {
		t.Fatalf("captions = %q", detail.CaptionText)
	}
}

func TestNoopSource(t *testing.T) {
	src := NewNoopSource(3)

	if _, err := src.List(context.Background(), "unknown"); !errors.Is(err, domain.ErrChannelNotFound) {
		t.Fatalf("err = %v, want ErrChannelNotFound", err)
	}

	videos, err := src.List(context.Background(), "any-channel")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("len = %d, want 3", len(videos))
	}

	detail, err := src.FetchDetail(context.Background(), videos[0])
	if err != nil {
		t.Fatalf("fetch detail: %v", err)
	}
	if len(detail.Comments) == 0 {
		t.Fatal("noop detail has no comments")
	}
}
