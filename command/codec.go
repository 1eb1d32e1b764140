package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/id"
)

// Codec defines the serialization contract for envelopes and commands.
type Codec interface {
	// Marshal serializes v to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes data into v.
	Unmarshal(data []byte, v any) error

	// Name returns the codec identifier ("json" or "msgpack").
	Name() string
}

// Codec name constants for format negotiation.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// Shared codec instances.
var (
	JSON    Codec = JSONCodec{}
	Msgpack Codec = MsgpackCodec{}
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return Msgpack
	default:
		return JSON
	}
}

// JSONCodec encodes envelopes and commands as JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                       { return CodecNameJSON }

// MsgpackCodec encodes envelopes and commands as MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (MsgpackCodec) Name() string                       { return CodecNameMsgpack }

// Envelope is the wire wrapper of a command.
type Envelope struct {
	// ID uniquely identifies this envelope. Transports use it for
	// broker-side publish dedup.
	ID id.CommandID `json:"id" msgpack:"id"`

	// Kind selects the command type of Data.
	Kind Kind `json:"kind" msgpack:"kind"`

	// Data carries the command encoded with the envelope's codec.
	Data json.RawMessage `json:"data" msgpack:"data"`

	// Timestamp records when the envelope was created.
	Timestamp time.Time `json:"ts" msgpack:"ts"`
}

// Encode wraps cmd in a fresh envelope and serializes both with c.
func Encode(c Codec, cmd Command) (*Envelope, []byte, error) {
	data, err := c.Marshal(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("command: encode %s: %w", cmd.Kind(), err)
	}

	env := &Envelope{
		ID:        id.NewCommandID(),
		Kind:      cmd.Kind(),
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	raw, err := c.Marshal(env)
	if err != nil {
		return nil, nil, fmt.Errorf("command: encode envelope: %w", err)
	}
	return env, raw, nil
}

// Decode parses an envelope and its command. Every failure wraps
// [jobcore.ErrInvalidCommand] because redelivering the same bytes cannot
// succeed.
func Decode(c Codec, raw []byte) (*Envelope, Command, error) {
	var env Envelope
	if err := c.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: decode envelope: %w", jobcore.ErrInvalidCommand, err)
	}

	cmd, err := New(env.Kind)
	if err != nil {
		return &env, nil, err
	}

	if err := c.Unmarshal(env.Data, cmd); err != nil {
		return &env, nil, fmt.Errorf("%w: decode %s: %w", jobcore.ErrInvalidCommand, env.Kind, err)
	}
	return &env, cmd, nil
}
