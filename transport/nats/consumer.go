package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	natsio "github.com/nats-io/nats.go"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/backoff"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
)

// DefaultMaxDeliver bounds redeliveries of a failing message.
const DefaultMaxDeliver = 20

// Dispatcher applies commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) (handler.Result, error)
}

// Action is how a message is settled with the broker.
type Action int

const (
	// ActionAck acknowledges the message.
	ActionAck Action = iota
	// ActionNak asks for redelivery after a delay.
	ActionNak
	// ActionTerm drops the message without redelivery.
	ActionTerm
)

func (a Action) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionNak:
		return "nak"
	case ActionTerm:
		return "term"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decide maps the outcome of handling a message to its settlement.
func Decide(err error) Action {
	switch {
	case err == nil:
		return ActionAck
	case errors.Is(err, jobcore.ErrInvalidCommand):
		return ActionTerm
	default:
		return ActionNak
	}
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithStream binds the consumer to a stream name.
func WithStream(name string) ConsumerOption {
	return func(c *Consumer) { c.stream = name }
}

// WithSubjectPrefix sets the subject prefix to consume.
func WithSubjectPrefix(prefix string) ConsumerOption {
	return func(c *Consumer) { c.prefix = prefix }
}

// WithQueue sets the queue group and durable name.
func WithQueue(name string) ConsumerOption {
	return func(c *Consumer) { c.queue = name }
}

// WithBackoff sets the redelivery delay strategy.
func WithBackoff(s backoff.Strategy) ConsumerOption {
	return func(c *Consumer) { c.backoff = s }
}

// WithMaxDeliver bounds deliveries per message.
func WithMaxDeliver(n int) ConsumerOption {
	return func(c *Consumer) { c.maxDeliver = n }
}

// WithAckWait sets how long the broker waits for a settlement before
// redelivering.
func WithAckWait(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.ackWait = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = l }
}

// Consumer feeds commands from JetStream into a Dispatcher.
type Consumer struct {
	js         natsio.JetStreamContext
	dispatcher Dispatcher
	backoff    backoff.Strategy
	stream     string
	prefix     string
	queue      string
	maxDeliver int
	ackWait    time.Duration
	logger     *slog.Logger

	mu  sync.Mutex
	sub *natsio.Subscription
	ctx context.Context
}

// NewConsumer creates a Consumer.
func NewConsumer(js natsio.JetStreamContext, d Dispatcher, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		js:         js,
		dispatcher: d,
		backoff:    backoff.DefaultStrategy(),
		stream:     DefaultStream,
		prefix:     DefaultSubjectPrefix,
		queue:      DefaultQueue,
		maxDeliver: DefaultMaxDeliver,
		ackWait:    time.Minute,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start subscribes to the command subjects. In-flight messages keep
// ctx's values but not its cancellation, so Stop can drain them.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return fmt.Errorf("jobcore/nats: consumer already started")
	}

	c.ctx = context.WithoutCancel(ctx)
	sub, err := c.js.QueueSubscribe(c.prefix+".>", c.queue, c.handle,
		natsio.BindStream(c.stream),
		natsio.Durable(c.queue),
		natsio.ManualAck(),
		natsio.AckExplicit(),
		natsio.AckWait(c.ackWait),
		natsio.MaxDeliver(c.maxDeliver),
		natsio.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("jobcore/nats: subscribe: %w", err)
	}
	c.sub = sub

	c.logger.Info("command consumer started",
		slog.String("stream", c.stream),
		slog.String("queue", c.queue),
	)
	return nil
}

// Stop drains the subscription, letting in-flight messages finish.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub == nil {
		return nil
	}
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("jobcore/nats: drain: %w", err)
	}
	c.logger.Info("command consumer stopped")
	return nil
}

// Run starts the consumer and blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return c.Stop()
}

func (c *Consumer) handle(msg *natsio.Msg) {
	codec := command.GetCodec(msg.Header.Get(HeaderCodec))

	env, cmd, err := command.Decode(codec, msg.Data)
	var res handler.Result
	if err == nil {
		res, err = c.dispatcher.Dispatch(c.ctx, cmd)
	}

	attempt := 1
	if md, mdErr := msg.Metadata(); mdErr == nil {
		attempt = int(md.NumDelivered)
	}

	attrs := []any{
		slog.String("subject", msg.Subject),
		slog.Int("attempt", attempt),
	}
	if env != nil {
		attrs = append(attrs,
			slog.String("envelope_id", env.ID.String()),
			slog.String("kind", string(env.Kind)),
		)
	}

	var settleErr error
	switch Decide(err) {
	case ActionAck:
		settleErr = msg.Ack()
	case ActionTerm:
		c.logger.Warn("dropping invalid command",
			append(attrs, slog.String("error", err.Error()))...,
		)
		settleErr = msg.Term()
	case ActionNak:
		delay := c.backoff.Delay(attempt)
		c.logger.Warn("command failed, redelivering",
			append(attrs,
				slog.String("error", err.Error()),
				slog.Duration("delay", delay),
			)...,
		)
		settleErr = msg.NakWithDelay(delay)
	}

	if settleErr != nil {
		c.logger.Error("settle message",
			append(attrs,
				slog.String("result", res.String()),
				slog.String("error", settleErr.Error()),
			)...,
		)
	}
}
