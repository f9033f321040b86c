package queue

import "context"

// Delivery is one message pulled from a queue. Retries counts how many times
// this payload has already been redelivered after a handling failure; the
// broker layer carries it in message metadata.
type Delivery struct {
	Body    []byte
	Retries int
}

// Outcome is the explicit result of handling one delivery. The consumer
// implementation translates it into the broker's ack/reject vocabulary.
type Outcome int

const (
	// Ack removes the message from the queue.
	Ack Outcome = iota
	// Retry requeues the message with its retry count incremented; after
	// the configured limit it is routed to the dead-letter queue instead.
	Retry
	// DeadLetter routes the message to the dead-letter queue immediately.
	DeadLetter
)

// Handler processes one delivery and reports what to do with it. Handlers
// must never panic the consume loop; content-level failures are converted
// into status messages and still acked.
type Handler func(ctx context.Context, d Delivery) Outcome

// Publisher publishes one durable message to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// Consumer pulls messages from a named queue one at a time and feeds them to
// the handler until ctx is cancelled or the broker connection drops.
type Consumer interface {
	Consume(ctx context.Context, queueName string, h Handler) error
}
