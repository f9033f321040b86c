package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/ports/queue"
	"channel-insight/internal/infra/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// retryHeader carries the redelivery count across republishes so a malformed
// message cannot loop forever.
const retryHeader = "x-retry-count"

// Compile-time assurance the client satisfies both queue ports.
var (
	_ queue.Publisher = (*Client)(nil)
	_ queue.Consumer  = (*Client)(nil)
)

// Client wraps one AMQP connection and implements the queue ports with
// durable queues, persistent deliveries and publisher confirms.
type Client struct {
	conn           *amqp.Connection
	publishTimeout time.Duration
	maxRetries     int
	log            *zerolog.Logger

	mu sync.Mutex
}

func Dial(url string, publishTimeout time.Duration, maxRetries int, log *zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	if publishTimeout <= 0 {
		publishTimeout = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		conn:           conn,
		publishTimeout: publishTimeout,
		maxRetries:     maxRetries,
		log:            log,
	}, nil
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.IsConnected() {
		return nil
	}
	return c.conn.Close()
}

// DeadLetterQueue names the dead-letter destination paired with a queue.
func DeadLetterQueue(queueName string) string {
	return queueName + ".dead_letter"
}

func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// Publish sends one persistent message to the named queue and waits for the
// broker's publish confirmation.
func (c *Client) Publish(ctx context.Context, queueName string, body []byte) error {
	err := c.publish(ctx, queueName, body, nil)
	metrics.IncPublish(queueName, err == nil)
	return err
}

func (c *Client) publish(ctx context.Context, queueName string, body []byte, headers amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		return domain.ErrQueueUnavailable
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, queueName); err != nil {
		return err
	}

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	pctx, cancel := context.WithTimeout(ctx, c.publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		pctx,
		"",        // default exchange routes by queue name
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}

	select {
	case confirmed, ok := <-confirms:
		if !ok {
			return fmt.Errorf("confirmation channel closed")
		}
		if !confirmed.Ack {
			return fmt.Errorf("publish to %s not confirmed", queueName)
		}
	case <-pctx.Done():
		return fmt.Errorf("publish confirmation timed out after %v", c.publishTimeout)
	}
	return nil
}

// Consume pulls messages from the named queue one at a time (prefetch 1, so
// the broker spreads work across any number of consumer instances) and maps
// each handler outcome onto the ack/retry/dead-letter discipline. It blocks
// until ctx is cancelled or the delivery stream closes.
func (c *Client) Consume(ctx context.Context, queueName string, h queue.Handler) error {
	if !c.IsConnected() {
		return domain.ErrQueueUnavailable
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, queueName); err != nil {
		return err
	}
	if err := declareQueue(ch, DeadLetterQueue(queueName)); err != nil {
		return err
	}

	// One unacked message at a time per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		queueName,
		"",    // consumer tag auto-generated
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery stream for %s closed", queueName)
			}
			c.handleDelivery(ctx, queueName, d, h)
		}
	}
}

// deliveryAction is the broker-side follow-up to a handler outcome.
type deliveryAction int

const (
	actionSettle deliveryAction = iota
	actionRepublish
	actionDeadLetter
)

// nextAction maps a handler outcome onto the follow-up for a message that
// has already been redelivered `retries` times. A Retry whose next attempt
// would reach maxRetries goes to the dead-letter queue instead of another
// republish.
func nextAction(outcome queue.Outcome, retries, maxRetries int) deliveryAction {
	switch outcome {
	case queue.Retry:
		if retries+1 >= maxRetries {
			return actionDeadLetter
		}
		return actionRepublish
	case queue.DeadLetter:
		return actionDeadLetter
	default:
		return actionSettle
	}
}

// retryHeaders stamps the republished copy with an incremented count.
func retryHeaders(retries int) amqp.Table {
	return amqp.Table{retryHeader: int32(retries + 1)}
}

func (c *Client) handleDelivery(ctx context.Context, queueName string, d amqp.Delivery, h queue.Handler) {
	retries := RetryCount(d.Headers)
	outcome := h(ctx, queue.Delivery{Body: d.Body, Retries: retries})

	switch nextAction(outcome, retries, c.maxRetries) {
	case actionSettle:
		metrics.IncConsumed(queueName, "ack")

	case actionRepublish:
		metrics.IncConsumed(queueName, "retry")
		if err := c.publish(ctx, queueName, d.Body, retryHeaders(retries)); err != nil {
			c.log.Error().Err(err).Str("queue", queueName).Msg("requeue failed, dead-lettering")
			c.toDeadLetter(ctx, queueName, d.Body)
		}

	case actionDeadLetter:
		c.toDeadLetter(ctx, queueName, d.Body)
	}

	// The original delivery is always settled: retries travel via republish,
	// never via broker redelivery of the same delivery tag.
	if err := d.Ack(false); err != nil {
		c.log.Error().Err(err).Str("queue", queueName).Msg("ack failed")
	}
}

func (c *Client) toDeadLetter(ctx context.Context, queueName string, body []byte) {
	metrics.IncConsumed(queueName, "dead_letter")
	metrics.IncDeadLettered(queueName)
	if err := c.publish(ctx, DeadLetterQueue(queueName), body, nil); err != nil {
		c.log.Error().Err(err).Str("queue", queueName).Msg("dead-letter publish failed, message dropped")
	}
}

// RetryCount reads the redelivery count from message headers; absent or
// malformed headers count as zero.
func RetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
