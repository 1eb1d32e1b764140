// Package ingest streams newline-delimited JSON records into a streaming
// job.
//
// The Importer initializes the job (idempotent on the correlation id),
// sends the records as AddJobItemsBatch commands carrying a source offset,
// and finalizes the job once the source is drained. Each batch records a
// checkpoint in the same transaction that adds its items, so an import
// interrupted by a crash can be rerun with the same correlation id and
// source: records at or below the checkpoint offset are skipped and
// redelivered batches are recognized as duplicates.
//
//	im := ingest.New(eng, eng.Store(), ingest.WithBatchSize(500), ingest.WithRate(20, 1))
//	rep, err := im.Import(ctx, ingest.Request{
//	    JobType:       job.TypeAuctionImport,
//	    CorrelationID: "catalog-2026-10-16",
//	}, file)
package ingest
