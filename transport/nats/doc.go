// Package nats carries commands over NATS JetStream.
//
// The Publisher encodes a command into a [command.Envelope] and publishes
// it to "<prefix>.<kind>" with a Nats-Msg-Id header, so the stream drops
// republished creations and batches inside its duplicate window.
//
// The Consumer joins a queue group on a durable consumer with manual
// acknowledgement. Each message is settled only after the dispatcher
// returns, which means after the handler's transaction committed:
//
//   - nil error: Ack. Duplicates and other no-op results are acked too.
//   - jobcore.ErrInvalidCommand (including undecodable bytes): Term. The
//     same bytes can never succeed, so the message is dropped and logged.
//   - any other error: NakWithDelay, the delay taken from a
//     [backoff.Strategy] on the delivery attempt.
//
// Delivery is at least once; the handlers are idempotent.
package nats
