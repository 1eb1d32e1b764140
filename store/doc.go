// Package store defines the aggregate persistence interface.
//
// Each aggregate package (job, item, checkpoint) defines a transactional
// Store contract and a read-side Reader contract. The composite [Store]
// exposes the readers directly and the transactional contracts only
// through [Store.InTx]:
//
//	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
//	    j, err := tx.GetJobForUpdate(ctx, jobID)
//	    if err != nil {
//	        return err
//	    }
//	    if _, err := j.RecordItemCompleted(); err != nil {
//	        return err
//	    }
//	    return tx.UpdateJob(ctx, j)
//	})
//
// The job row is the unit of contention: GetJobForUpdate serializes
// concurrent transactions touching the same job while unrelated jobs
// proceed in parallel.
//
// # Available Backends
//
//   - store/memory: in-memory store for development and testing
//   - store/postgres: PostgreSQL backend using pgx/v5
//
// # Migrations
//
// Call Migrate once at startup to create or update the schema:
//
//	if err := s.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package store
