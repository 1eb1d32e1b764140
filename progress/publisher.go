package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/ext"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/query"
)

const (
	// KeyPrefix prefixes every snapshot key.
	KeyPrefix = "jobcore:progress:"
	// DefaultChannel is the pub/sub channel snapshots are published on.
	DefaultChannel = "jobcore:progress"
	// DefaultTTL is how long a snapshot is kept after its last update.
	DefaultTTL = 24 * time.Hour
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Publisher)(nil)
	_ ext.JobCreated    = (*Publisher)(nil)
	_ ext.JobStarted    = (*Publisher)(nil)
	_ ext.JobProgressed = (*Publisher)(nil)
	_ ext.JobCompleted  = (*Publisher)(nil)
	_ ext.JobFailed     = (*Publisher)(nil)
	_ ext.JobCancelled  = (*Publisher)(nil)
)

// push writes the snapshot unless a newer one is stored, then publishes.
// KEYS[1] snapshot key; ARGV: updated_at (see stamp), snapshot, ttl (ms),
// channel.
var push = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'snapshot', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
redis.call('PUBLISH', ARGV[4], ARGV[2])
return 1
`)

// Option configures a Publisher.
type Option func(*Publisher)

// WithTTL sets the snapshot TTL.
func WithTTL(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.ttl = d
		}
	}
}

// WithChannel sets the pub/sub channel.
func WithChannel(ch string) Option {
	return func(p *Publisher) { p.channel = ch }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// Publisher mirrors job progress into Redis.
type Publisher struct {
	client  redis.Scripter
	ttl     time.Duration
	channel string
	logger  *slog.Logger
}

// New creates a Publisher. The caller owns the Redis client lifecycle.
func New(client redis.Scripter, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		ttl:     DefaultTTL,
		channel: DefaultChannel,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements ext.Extension.
func (p *Publisher) Name() string { return "progress-redis" }

// stamp encodes t for the ordering check in push. Lua compares numbers
// as doubles, so the value stays in microseconds to remain exact.
func stamp(t time.Time) string { return strconv.FormatInt(t.UnixMicro(), 10) }

// Key returns the snapshot key of a job.
func Key(jobID id.JobID) string { return KeyPrefix + jobID.String() }

// Publish stores and publishes the job's current snapshot. It reports
// whether the write happened; false means a newer snapshot is stored.
func (p *Publisher) Publish(ctx context.Context, j *job.Job) (bool, error) {
	snap, err := json.Marshal(query.ProgressOf(j))
	if err != nil {
		return false, fmt.Errorf("jobcore/progress: encode: %w", err)
	}

	n, err := push.Run(ctx, p.client,
		[]string{Key(j.ID)},
		stamp(j.UpdatedAt),
		string(snap),
		p.ttl.Milliseconds(),
		p.channel,
	).Int()
	if err != nil {
		return false, fmt.Errorf("jobcore/progress: push %s: %w", j.ID, err)
	}
	if n == 0 {
		p.logger.Debug("newer progress snapshot already stored",
			slog.String("job_id", j.ID.String()),
			slog.String("status", string(j.Status)),
		)
	}
	return n == 1, nil
}

// Get returns the stored snapshot of a job. Returns
// jobcore.ErrJobNotFound when no snapshot is stored.
func Get(ctx context.Context, client redis.Cmdable, jobID id.JobID) (*query.Progress, error) {
	raw, err := client.HGet(ctx, Key(jobID), "snapshot").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, jobcore.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobcore/progress: get %s: %w", jobID, err)
	}

	var snap query.Progress
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("jobcore/progress: decode %s: %w", jobID, err)
	}
	return &snap, nil
}

// Subscribe returns a subscription to the progress channel.
func Subscribe(ctx context.Context, client *redis.Client, channel string) *redis.PubSub {
	if channel == "" {
		channel = DefaultChannel
	}
	return client.Subscribe(ctx, channel)
}

func (p *Publisher) publish(ctx context.Context, j *job.Job) error {
	_, err := p.Publish(ctx, j)
	return err
}

// OnJobCreated implements ext.JobCreated.
func (p *Publisher) OnJobCreated(ctx context.Context, j *job.Job) error { return p.publish(ctx, j) }

// OnJobStarted implements ext.JobStarted.
func (p *Publisher) OnJobStarted(ctx context.Context, j *job.Job) error { return p.publish(ctx, j) }

// OnJobProgressed implements ext.JobProgressed.
func (p *Publisher) OnJobProgressed(ctx context.Context, j *job.Job, _ job.Effects) error {
	return p.publish(ctx, j)
}

// OnJobCompleted implements ext.JobCompleted.
func (p *Publisher) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	return p.publish(ctx, j)
}

// OnJobFailed implements ext.JobFailed.
func (p *Publisher) OnJobFailed(ctx context.Context, j *job.Job, _ string) error {
	return p.publish(ctx, j)
}

// OnJobCancelled implements ext.JobCancelled.
func (p *Publisher) OnJobCancelled(ctx context.Context, j *job.Job) error { return p.publish(ctx, j) }
