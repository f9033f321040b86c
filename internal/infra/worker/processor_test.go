package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/queue"

	"github.com/rs/zerolog"
)

type fakePublisher struct {
	bodies   [][]byte
	failWhen func(body []byte) error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, body []byte) error {
	if f.failWhen != nil {
		if err := f.failWhen(body); err != nil {
			return err
		}
	}
	f.bodies = append(f.bodies, body)
	return nil
}

type fakeAnalyzer struct {
	result model.VideoAnalysis
	err    error
	panics bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ model.VideoDetail) (model.VideoAnalysis, error) {
	if f.panics {
		panic("analyzer blew up")
	}
	return f.result, f.err
}

func newTestProcessor(pub *fakePublisher, an *fakeAnalyzer) *Processor {
	log := zerolog.Nop()
	return NewProcessor("work", "results", nil, pub, an, &log)
}

func workItemBody(t *testing.T) []byte {
	t.Helper()
	item := model.WorkItem{
		JobID:     "job-1",
		ChannelID: "chan-1",
		Video: model.VideoDetail{
			Video:    model.Video{ID: "v1", Title: "Video 1"},
			Comments: []string{"nice"},
		},
	}
	body, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func decodeTypes(t *testing.T, bodies [][]byte) []string {
	t.Helper()
	out := make([]string, 0, len(bodies))
	for _, b := range bodies {
		var env model.Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("published body not decodable: %v", err)
		}
		out = append(out, env.Type)
	}
	return out
}

func TestHandleHappyPath(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestProcessor(pub, &fakeAnalyzer{result: model.VideoAnalysis{Summary: "great video"}})

	out := p.Handle(context.Background(), queue.Delivery{Body: workItemBody(t)})
	if out != queue.Ack {
		t.Fatalf("outcome = %v, want Ack", out)
	}

	types := decodeTypes(t, pub.bodies)
	if len(types) != 2 || types[0] != model.MessageTypeStatusUpdate || types[1] != model.MessageTypeVideoResults {
		t.Fatalf("published types = %v", types)
	}

	var res model.VideoResult
	if err := json.Unmarshal(pub.bodies[1], &res); err != nil {
		t.Fatalf("result decode: %v", err)
	}
	if res.JobID != "job-1" || res.VideoID != "v1" || res.Results.Summary != "great video" {
		t.Fatalf("result = %+v", res)
	}
}

func TestHandleUndecodableMessage(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestProcessor(pub, &fakeAnalyzer{})

	for _, body := range [][]byte{
		[]byte("{broken"),
		[]byte(`{"jobId":"","video":{"id":"v1"}}`),
		[]byte(`{"jobId":"job-1","video":{"id":""}}`),
	} {
		if out := p.Handle(context.Background(), queue.Delivery{Body: body}); out != queue.Retry {
			t.Fatalf("body %q: outcome = %v, want Retry", body, out)
		}
	}
	if len(pub.bodies) != 0 {
		t.Fatalf("published %d messages for undecodable input", len(pub.bodies))
	}
}

func TestHandleStatusPublishFailure(t *testing.T) {
	pub := &fakePublisher{failWhen: func([]byte) error { return errors.New("broker down") }}
	p := newTestProcessor(pub, &fakeAnalyzer{result: model.VideoAnalysis{Summary: "s"}})

	if out := p.Handle(context.Background(), queue.Delivery{Body: workItemBody(t)}); out != queue.Retry {
		t.Fatalf("outcome = %v, want Retry", out)
	}
}

// When only the results payload is undeliverable, the worker reports the
// video as failed and still acks the work item.
func TestHandleResultPublishFailure(t *testing.T) {
	pub := &fakePublisher{failWhen: func(body []byte) error {
		if strings.Contains(string(body), model.MessageTypeVideoResults) {
			return errors.New("payload too large")
		}
		return nil
	}}
	p := newTestProcessor(pub, &fakeAnalyzer{result: model.VideoAnalysis{Summary: "s"}})

	if out := p.Handle(context.Background(), queue.Delivery{Body: workItemBody(t)}); out != queue.Ack {
		t.Fatalf("outcome = %v, want Ack", out)
	}

	types := decodeTypes(t, pub.bodies)
	if len(types) != 2 {
		t.Fatalf("published types = %v", types)
	}
	var last model.StatusUpdate
	if err := json.Unmarshal(pub.bodies[len(pub.bodies)-1], &last); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if last.Status != model.VideoStatusFailed || last.Error == "" {
		t.Fatalf("final status update = %+v", last)
	}
}

func TestHandleCancelledAnalysis(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestProcessor(pub, &fakeAnalyzer{err: context.Canceled})

	if out := p.Handle(context.Background(), queue.Delivery{Body: workItemBody(t)}); out != queue.Retry {
		t.Fatalf("outcome = %v, want Retry", out)
	}
}

// A panic while processing is an item-level failure: the loop survives, the
// video is reported failed and the message is acked.
func TestHandlePanicIsContained(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestProcessor(pub, &fakeAnalyzer{panics: true})

	if out := p.Handle(context.Background(), queue.Delivery{Body: workItemBody(t)}); out != queue.Ack {
		t.Fatalf("outcome = %v, want Ack", out)
	}

	var last model.StatusUpdate
	if err := json.Unmarshal(pub.bodies[len(pub.bodies)-1], &last); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if last.Status != model.VideoStatusFailed {
		t.Fatalf("final status = %s, want failed", last.Status)
	}
}
