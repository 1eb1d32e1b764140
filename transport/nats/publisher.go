package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	natsio "github.com/nats-io/nats.go"

	"github.com/xraph/jobcore/command"
)

// msgIDSpace namespaces derived message ids.
var msgIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/xraph/jobcore/commands"))

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublishCodec sets the envelope codec. Defaults to JSON.
func WithPublishCodec(c command.Codec) PublisherOption {
	return func(p *Publisher) { p.codec = c }
}

// WithPublishSubjectPrefix sets the subject prefix.
func WithPublishSubjectPrefix(prefix string) PublisherOption {
	return func(p *Publisher) { p.prefix = prefix }
}

// WithPublishLogger sets the logger.
func WithPublishLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l }
}

// Publisher sends commands to the command stream.
type Publisher struct {
	js     natsio.JetStreamContext
	codec  command.Codec
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(js natsio.JetStreamContext, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		js:     js,
		codec:  command.JSON,
		prefix: DefaultSubjectPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish encodes cmd and publishes it. It returns the envelope that was
// sent. A publish the stream recognized as a duplicate is not an error.
func (p *Publisher) Publish(ctx context.Context, cmd command.Command) (*command.Envelope, error) {
	env, raw, err := command.Encode(p.codec, cmd)
	if err != nil {
		return nil, err
	}

	msg := natsio.NewMsg(Subject(p.prefix, cmd.Kind()))
	msg.Data = raw
	msg.Header.Set(natsio.MsgIdHdr, MessageID(env, cmd))
	msg.Header.Set(HeaderCodec, p.codec.Name())
	msg.Header.Set(HeaderKind, string(cmd.Kind()))

	ack, err := p.js.PublishMsg(msg, natsio.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("jobcore/nats: publish %s: %w", cmd.Kind(), err)
	}
	if ack.Duplicate {
		p.logger.Debug("publish deduplicated by stream",
			slog.String("kind", string(cmd.Kind())),
			slog.String("msg_id", msg.Header.Get(natsio.MsgIdHdr)),
		)
	}
	return env, nil
}

// Subject returns the subject a command kind is published on.
func Subject(prefix string, kind command.Kind) string {
	return prefix + "." + string(kind)
}

// MessageID returns the Nats-Msg-Id for a command. Creations and
// offset-carrying batches get an id derived from their idempotency key so
// producers that retry a publish collapse onto one message; every other
// command uses the envelope id.
func MessageID(env *command.Envelope, cmd command.Command) string {
	switch c := cmd.(type) {
	case *command.CreateJob, *command.InitializeStreamingJob:
		return derived(cmd.Kind(), command.Subject(cmd))
	case *command.AddJobItemsBatch:
		if c.SourceOffset != nil {
			return derived(c.Kind(), c.JobID.String()+"@"+strconv.FormatInt(*c.SourceOffset, 10))
		}
	}
	return env.ID.String()
}

func derived(kind command.Kind, key string) string {
	return uuid.NewSHA1(msgIDSpace, []byte(string(kind)+"/"+key)).String()
}
