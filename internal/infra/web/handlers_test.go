package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"

	"github.com/rs/zerolog"
)

type fakeUC struct {
	submitJob *model.Job
	submitErr error
	jobs      map[string]*model.Job
}

func (f *fakeUC) Submit(_ context.Context, channelID string) (*model.Job, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitJob, nil
}

func (f *fakeUC) Job(_ context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, domain.ErrInvalidArgument
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func newTestServer(uc *fakeUC) http.Handler {
	log := zerolog.Nop()
	return NewServer(uc, "http://api.test", &log).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: response not JSON: %v\n%s", method, path, err, rec.Body.String())
	}
	return rec, out
}

func TestAnalyzeValidation(t *testing.T) {
	h := newTestServer(&fakeUC{})

	for _, body := range []string{"", "{broken", `{"channelId":""}`, `{}`} {
		rec, _ := doJSON(t, h, http.MethodPost, "/analyze", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestAnalyzeUnknownChannel(t *testing.T) {
	h := newTestServer(&fakeUC{submitErr: domain.ErrChannelNotFound})

	rec, out := doJSON(t, h, http.MethodPost, "/analyze", `{"channelId":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if out["error"] != "not_found" {
		t.Fatalf("error = %v", out["error"])
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	job := model.NewJob("job-1", "chan-1", 4, time.Now().UTC())
	h := newTestServer(&fakeUC{submitJob: job})

	rec, out := doJSON(t, h, http.MethodPost, "/analyze", `{"channelId":"chan-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if out["jobId"] != "job-1" || out["status"] != string(model.JobStatusInitializing) {
		t.Fatalf("response = %v", out)
	}
	if out["videoCount"] != float64(4) {
		t.Fatalf("videoCount = %v", out["videoCount"])
	}
	if got, _ := out["checkStatusUrl"].(string); got != "http://api.test/job-status/job-1" {
		t.Fatalf("checkStatusUrl = %q", got)
	}
	if out["estimatedTime"] == "" {
		t.Fatal("estimatedTime missing")
	}
}

func TestJobStatusNotFound(t *testing.T) {
	h := newTestServer(&fakeUC{jobs: map[string]*model.Job{}})

	rec, _ := doJSON(t, h, http.MethodGet, "/job-status/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJobStatusCounts(t *testing.T) {
	now := time.Now().UTC()
	job := model.NewJob("job-1", "chan-1", 3, now)
	job.EnqueueDone = true
	job.ApplyResult("v1", now, model.VideoAnalysis{Summary: "s"})
	job.ApplyStatus("v2", "t", model.VideoStatusFailed, now, "boom")
	job.ApplyStatus("v3", "t", model.VideoStatusProcessing, now, "")
	h := newTestServer(&fakeUC{jobs: map[string]*model.Job{"job-1": job}})

	rec, out := doJSON(t, h, http.MethodGet, "/job-status/job-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if out["status"] != string(model.JobStatusProcessing) {
		t.Fatalf("job status = %v", out["status"])
	}
	if out["completedVideos"] != float64(1) || out["failedVideos"] != float64(1) {
		t.Fatalf("counts = %v/%v", out["completedVideos"], out["failedVideos"])
	}
	videos, ok := out["videos"].(map[string]any)
	if !ok || len(videos) != 3 {
		t.Fatalf("videos = %v", out["videos"])
	}
}

// Polling results before the job finishes is not an error; the response says
// so and carries no result entries.
func TestJobResultsInProgress(t *testing.T) {
	now := time.Now().UTC()
	job := model.NewJob("job-1", "chan-1", 2, now)
	job.ApplyStatus("v1", "t", model.VideoStatusProcessing, now, "")
	h := newTestServer(&fakeUC{jobs: map[string]*model.Job{"job-1": job}})

	rec, out := doJSON(t, h, http.MethodGet, "/job-results/job-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if out["message"] == nil || out["results"] != nil {
		t.Fatalf("in-progress response = %v", out)
	}
}

func TestJobResultsFinished(t *testing.T) {
	now := time.Now().UTC()
	job := model.NewJob("job-1", "chan-1", 3, now)
	job.EnqueueDone = true
	job.ApplyResult("v2", now, model.VideoAnalysis{Summary: "second"})
	job.ApplyResult("v1", now, model.VideoAnalysis{Summary: "first"})
	job.ApplyStatus("v3", "t", model.VideoStatusFailed, now, "boom")
	h := newTestServer(&fakeUC{jobs: map[string]*model.Job{"job-1": job}})

	rec, out := doJSON(t, h, http.MethodGet, "/job-results/job-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if out["status"] != string(model.JobStatusPartiallyCompleted) {
		t.Fatalf("status = %v", out["status"])
	}

	results, ok := out["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("results = %v", out["results"])
	}
	first := results[0].(map[string]any)
	if first["videoId"] != "v1" {
		t.Fatalf("results not in video-id order: %v", results)
	}
	for _, r := range results {
		if r.(map[string]any)["results"] == nil {
			t.Fatalf("result entry without analysis payload: %v", r)
		}
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeUC{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}
