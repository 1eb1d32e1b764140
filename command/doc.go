// Package command defines the typed command union consumed by the handler
// dispatcher, their validation rules, and the wire envelope.
//
// Every command implements [Command]. Validate rejects malformed commands
// before any state is touched; its errors wrap [jobcore.ErrInvalidCommand]
// so transports can drop them instead of redelivering.
//
// # Wire Format
//
// Commands travel inside an [Envelope] {id, kind, data, ts}. The data field
// holds the command encoded with the same [Codec] as the envelope:
//
//	env, raw, err := command.Encode(command.JSON, &command.StartJob{JobID: jobID})
//	env, cmd, err := command.Decode(command.JSON, raw)
package command
