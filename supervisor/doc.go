// Package supervisor fails processing jobs that stopped making progress.
//
// The core never enacts timeouts on its own: a job whose workers vanished
// stays in processing forever. The Supervisor is an external sweeper run on
// a cron schedule. Each sweep lists processing jobs whose last update is
// older than the stale threshold and dispatches FailJobByCorrelation for
// each, so the failure goes through the same idempotent handler path as
// any other command.
//
//	sup := supervisor.New(eng.Store(), eng,
//	    supervisor.WithSchedule("@every 1m"),
//	    supervisor.WithStaleAfter(30*time.Minute),
//	)
//	if err := sup.Start(ctx); err != nil { ... }
//	defer sup.Stop(ctx)
package supervisor
