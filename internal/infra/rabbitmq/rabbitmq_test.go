package rabbitmq

import (
	"testing"

	"channel-insight/internal/domain/ports/queue"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestRetryCount(t *testing.T) {
	cases := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{"nil headers", nil, 0},
		{"missing header", amqp.Table{"other": 1}, 0},
		{"int32", amqp.Table{retryHeader: int32(2)}, 2},
		{"int64", amqp.Table{retryHeader: int64(5)}, 5},
		{"int", amqp.Table{retryHeader: 1}, 1},
		{"malformed", amqp.Table{retryHeader: "three"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RetryCount(tc.headers); got != tc.want {
				t.Fatalf("RetryCount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDeadLetterQueue(t *testing.T) {
	if got := DeadLetterQueue("video_analysis_queue"); got != "video_analysis_queue.dead_letter" {
		t.Fatalf("DeadLetterQueue() = %q", got)
	}
}

// With maxRetries=3 a message is republished on its first two failures and
// dead-lettered on the third: retries counts prior republishes, so the bound
// trips when the next attempt would be number maxRetries.
func TestNextAction(t *testing.T) {
	cases := []struct {
		name       string
		outcome    queue.Outcome
		retries    int
		maxRetries int
		want       deliveryAction
	}{
		{"ack settles", queue.Ack, 0, 3, actionSettle},
		{"first failure republishes", queue.Retry, 0, 3, actionRepublish},
		{"second failure republishes", queue.Retry, 1, 3, actionRepublish},
		{"third failure dead-letters", queue.Retry, 2, 3, actionDeadLetter},
		{"beyond the bound dead-letters", queue.Retry, 5, 3, actionDeadLetter},
		{"single-attempt limit", queue.Retry, 0, 1, actionDeadLetter},
		{"explicit dead-letter, fresh message", queue.DeadLetter, 0, 3, actionDeadLetter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextAction(tc.outcome, tc.retries, tc.maxRetries); got != tc.want {
				t.Fatalf("nextAction(%v, %d, %d) = %v, want %v", tc.outcome, tc.retries, tc.maxRetries, got, tc.want)
			}
		})
	}
}

// The republished copy must carry a count one higher than the delivery it
// replaces, and the consumer side must read it back.
func TestRetryHeadersRoundTrip(t *testing.T) {
	for retries := 0; retries < 3; retries++ {
		if got := RetryCount(retryHeaders(retries)); got != retries+1 {
			t.Fatalf("RetryCount(retryHeaders(%d)) = %d, want %d", retries, got, retries+1)
		}
	}
}
