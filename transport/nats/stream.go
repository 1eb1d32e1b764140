package nats

import (
	"errors"
	"fmt"
	"time"

	natsio "github.com/nats-io/nats.go"
)

const (
	// DefaultStream is the JetStream stream holding commands.
	DefaultStream = "JOBCORE_COMMANDS"
	// DefaultSubjectPrefix prefixes every command subject.
	DefaultSubjectPrefix = "jobcore.commands"
	// DefaultQueue is the queue group and durable consumer name.
	DefaultQueue = "jobcore"
	// DefaultDuplicateWindow is how long the stream remembers message ids.
	DefaultDuplicateWindow = 2 * time.Minute

	// HeaderCodec names the codec of the envelope.
	HeaderCodec = "Jobcore-Codec"
	// HeaderKind carries the command kind for routing and inspection.
	HeaderKind = "Jobcore-Kind"
)

// Connect dials NATS with reconnects enabled and returns the connection
// and its JetStream context.
func Connect(url string, opts ...natsio.Option) (*natsio.Conn, natsio.JetStreamContext, error) {
	base := []natsio.Option{
		natsio.Name("jobcore"),
		natsio.MaxReconnects(-1),
		natsio.ReconnectWait(2 * time.Second),
		natsio.Timeout(5 * time.Second),
	}
	nc, err := natsio.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("jobcore/nats: connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jobcore/nats: jetstream: %w", err)
	}
	return nc, js, nil
}

// EnsureStream creates the command stream if it does not exist.
func EnsureStream(js natsio.JetStreamManager, name, subjectPrefix string) error {
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, natsio.ErrStreamNotFound) {
		return fmt.Errorf("jobcore/nats: stream info %s: %w", name, err)
	}

	_, err = js.AddStream(&natsio.StreamConfig{
		Name:       name,
		Subjects:   []string{subjectPrefix + ".>"},
		Storage:    natsio.FileStorage,
		Retention:  natsio.WorkQueuePolicy,
		Duplicates: DefaultDuplicateWindow,
	})
	if err != nil {
		return fmt.Errorf("jobcore/nats: add stream %s: %w", name, err)
	}
	return nil
}
