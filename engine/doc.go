// Package engine wires the jobcore subsystems together and provides the
// application-level entry point for handling commands.
//
// # Building an Engine
//
//	eng, err := engine.New(pgStore,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(progress.NewPublisher(rdb)),
//	    engine.WithMeterProvider(meterProvider),
//	)
//
// # Dispatching Commands
//
//	res, err := eng.Dispatch(ctx, &command.CreateJob{
//	    JobType:       job.TypeAuctionExport,
//	    CorrelationID: "export-42",
//	    TotalItems:    1200,
//	})
//
// Every command runs through the middleware chain
// (recover → tracing → metrics → logging → timeout → custom middleware)
// and then the handler.Dispatcher. Dispatch returns after the transaction
// committed; no-op outcomes (duplicates, missing or terminal targets) are
// reported as a handler.Result with a nil error.
//
// # Reading State
//
//	p, err := eng.Query().Progress(ctx, jobID)
//
// # Shutdown
//
// Stop emits the Shutdown lifecycle event and closes the store.
package engine
