// Package progress pushes job progress snapshots to Redis.
//
// Publisher is an ext extension. After every committed lifecycle change it
// stores the job's [query.Progress] snapshot as JSON under
// "jobcore:progress:<job id>" with a TTL and publishes the same JSON on the
// "jobcore:progress" channel. Polling clients read the key; push clients
// subscribe to the channel.
//
// Pushes are opportunistic: a Redis failure is logged by the extension
// registry and never affects the command that triggered it. Hooks run
// after commit, so two commits on one job may reach Redis out of order;
// the write is skipped when the stored snapshot is newer.
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	eng, _ := engine.New(s, engine.WithExtension(progress.New(rdb)))
package progress
