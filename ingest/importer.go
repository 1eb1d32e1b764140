package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

var (
	// ErrEmptySource is returned when the source holds no records.
	ErrEmptySource = errors.New("ingest: empty source")
	// ErrJobClosed is returned when the target job was failed or
	// cancelled and no longer accepts items.
	ErrJobClosed = errors.New("ingest: job no longer accepts items")
	// ErrInvalidRecord is returned for a line that is not valid JSON.
	ErrInvalidRecord = errors.New("ingest: invalid record")
)

// DefaultBatchSize is the number of records sent per batch.
const DefaultBatchSize = 500

// maxRecordSize bounds a single source line.
const maxRecordSize = 4 << 20

// Dispatcher applies commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) (handler.Result, error)
}

// Reader looks up the job and its checkpoint.
type Reader interface {
	GetJobByCorrelationID(ctx context.Context, correlationID string) (*job.Job, error)
	GetCheckpoint(ctx context.Context, correlationID string) (*checkpoint.Checkpoint, error)
}

// Request describes the streaming job to import into.
type Request struct {
	JobType       job.Type
	CorrelationID string
	Payload       json.RawMessage
	RequestedBy   string
	MaxRetryCount *int
	Priority      *job.Priority
}

// Report summarizes an import run.
type Report struct {
	JobID id.JobID
	// Records is the number of records read from the source.
	Records int
	// Skipped is the number of records at or below the checkpoint.
	Skipped int
	// Batches is the number of batches sent in this run.
	Batches int
	// Resumed is set when a checkpoint from an earlier run was found.
	Resumed bool
	// Status is the job status after the run.
	Status job.Status
}

// Importer streams records into streaming jobs.
type Importer struct {
	dispatcher Dispatcher
	reader     Reader
	batchSize  int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets the number of records per batch.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithRate limits the number of batches sent per second. A zero limit
// disables throttling. Burst defaults to 1.
func WithRate(batchesPerSecond float64, burst int) Option {
	return func(im *Importer) {
		if batchesPerSecond <= 0 {
			im.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		im.limiter = rate.NewLimiter(rate.Limit(batchesPerSecond), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) { im.logger = l }
}

// New creates an Importer.
func New(d Dispatcher, r Reader, opts ...Option) *Importer {
	im := &Importer{
		dispatcher: d,
		reader:     r,
		batchSize:  DefaultBatchSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import reads newline-delimited JSON records from src into the streaming
// job identified by req.CorrelationID, creating it if needed, and
// finalizes the job. Blank lines are ignored. Rerunning an interrupted
// import with the same correlation id resumes after the last checkpoint.
//
// An invalid first record is rejected before any job is created. An
// invalid record further in fails the job so it is not left initializing.
func (im *Importer) Import(ctx context.Context, req Request, src io.Reader) (*Report, error) {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	first, err := nextRecord(sc)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, ErrEmptySource
	}
	if !json.Valid(first) {
		return nil, fmt.Errorf("%w: record 1", ErrInvalidRecord)
	}

	j, err := im.initialize(ctx, req)
	if err != nil {
		return nil, err
	}
	rep := &Report{JobID: j.ID, Status: j.Status}

	switch j.Status {
	case job.StatusInitializing:
	case job.StatusFailed, job.StatusCancelled:
		return rep, fmt.Errorf("%w: job %s is %s", ErrJobClosed, j.ID, j.Status)
	default:
		// Finalized by an earlier run.
		return rep, nil
	}

	var resumeAt int64
	cp, err := im.reader.GetCheckpoint(ctx, req.CorrelationID)
	switch {
	case err == nil:
		resumeAt = cp.Offset
		rep.Resumed = true
		im.logger.Info("resuming import",
			slog.String("correlation_id", req.CorrelationID),
			slog.Int64("offset", resumeAt),
		)
	case !errors.Is(err, jobcore.ErrCheckpointNotFound):
		return rep, fmt.Errorf("ingest: get checkpoint: %w", err)
	}

	batch := make([]item.Draft, 0, im.batchSize)
	for rec := first; rec != nil; {
		rep.Records++
		if int64(rep.Records) <= resumeAt {
			rep.Skipped++
		} else {
			if !json.Valid(rec) {
				return rep, im.abandon(ctx, req.CorrelationID, rep)
			}
			batch = append(batch, item.Draft{Payload: rec, SequenceNumber: rep.Records - 1})
			if len(batch) == im.batchSize {
				if err := im.send(ctx, j.ID, batch, int64(rep.Records)); err != nil {
					return rep, err
				}
				rep.Batches++
				batch = make([]item.Draft, 0, im.batchSize)
			}
		}

		if rec, err = nextRecord(sc); err != nil {
			return rep, err
		}
	}

	if len(batch) > 0 {
		if err := im.send(ctx, j.ID, batch, int64(rep.Records)); err != nil {
			return rep, err
		}
		rep.Batches++
	}

	res, err := im.dispatcher.Dispatch(ctx, &command.FinalizeJobInitialization{JobID: j.ID})
	if err != nil {
		return rep, fmt.Errorf("ingest: finalize: %w", err)
	}
	if res != handler.ResultApplied && res != handler.ResultIgnored {
		return rep, fmt.Errorf("%w: finalize: %s", ErrJobClosed, res)
	}

	if j, err = im.reader.GetJobByCorrelationID(ctx, req.CorrelationID); err == nil {
		rep.Status = j.Status
	}

	im.logger.Info("import finished",
		slog.String("correlation_id", req.CorrelationID),
		slog.String("job_id", rep.JobID.String()),
		slog.Int("records", rep.Records),
		slog.Int("skipped", rep.Skipped),
		slog.Int("batches", rep.Batches),
	)
	return rep, nil
}

// initialize creates the streaming job, or finds the one created by an
// earlier run.
func (im *Importer) initialize(ctx context.Context, req Request) (*job.Job, error) {
	res, err := im.dispatcher.Dispatch(ctx, &command.InitializeStreamingJob{
		JobType:       req.JobType,
		CorrelationID: req.CorrelationID,
		Payload:       req.Payload,
		RequestedBy:   req.RequestedBy,
		MaxRetryCount: req.MaxRetryCount,
		Priority:      req.Priority,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: initialize: %w", err)
	}
	if res != handler.ResultApplied && res != handler.ResultDuplicate {
		return nil, fmt.Errorf("ingest: initialize: unexpected result %s", res)
	}

	j, err := im.reader.GetJobByCorrelationID(ctx, req.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("ingest: get job: %w", err)
	}
	if j.Mode != job.ModeStreaming {
		return nil, fmt.Errorf("%w: correlation id %q belongs to a %s job", ErrJobClosed, req.CorrelationID, j.Mode)
	}
	return j, nil
}

// abandon fails the job after an invalid record and returns the error
// the import stops with.
func (im *Importer) abandon(ctx context.Context, correlationID string, rep *Report) error {
	invalid := fmt.Errorf("%w: record %d", ErrInvalidRecord, rep.Records)

	_, err := im.dispatcher.Dispatch(ctx, &command.FailJobByCorrelation{
		CorrelationID: correlationID,
		ErrorMessage:  invalid.Error(),
	})
	if err != nil {
		return errors.Join(invalid, fmt.Errorf("ingest: fail job: %w", err))
	}
	rep.Status = job.StatusFailed

	im.logger.Warn("import abandoned",
		slog.String("correlation_id", correlationID),
		slog.String("job_id", rep.JobID.String()),
		slog.Int("record", rep.Records),
	)
	return invalid
}

// send dispatches one batch after waiting for the rate limiter.
func (im *Importer) send(ctx context.Context, jobID id.JobID, batch []item.Draft, offset int64) error {
	if im.limiter != nil {
		if err := im.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	res, err := im.dispatcher.Dispatch(ctx, &command.AddJobItemsBatch{
		JobID:        jobID,
		Items:        batch,
		SourceOffset: &offset,
	})
	if err != nil {
		return fmt.Errorf("ingest: add batch at offset %d: %w", offset, err)
	}

	switch res {
	case handler.ResultApplied:
	case handler.ResultDuplicate:
		im.logger.Debug("batch already imported",
			slog.String("job_id", jobID.String()),
			slog.Int64("offset", offset),
		)
	default:
		return fmt.Errorf("%w: add batch at offset %d: %s", ErrJobClosed, offset, res)
	}
	return nil
}

// nextRecord returns a copy of the next non-blank line, or nil at the end
// of the source.
func nextRecord(sc *bufio.Scanner) ([]byte, error) {
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		return bytes.Clone(line), nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ingest: read source: %w", err)
	}
	return nil, nil
}
