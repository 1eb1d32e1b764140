package job

import (
	"errors"
	"fmt"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/item"
)

// ErrBuilderSpent is returned by a [Builder] used after Finalize.
var ErrBuilderSpent = errors.New("job: builder already finalized")

// Builder drives the two-phase creation of a streaming job. It is scoped
// to a job in [StatusInitializing] and only exposes Add and Finalize.
type Builder struct {
	job   *Job
	spent bool
}

// NewBuilder returns a builder for an initializing job.
func NewBuilder(j *Job) (*Builder, error) {
	if j.Status != StatusInitializing {
		return nil, fmt.Errorf("%w: builder requires %s job, got %s",
			jobcore.ErrInvalidTransition, StatusInitializing, j.Status)
	}
	return &Builder{job: j}, nil
}

// Add grows the job by the given drafts and returns the owned items.
func (b *Builder) Add(drafts ...item.Draft) ([]*item.Item, error) {
	if b.spent {
		return nil, ErrBuilderSpent
	}
	return b.job.AddItems(drafts...)
}

// Finalize moves the job to pending and spends the builder.
func (b *Builder) Finalize() (Effects, error) {
	if b.spent {
		return Effects{From: b.job.Status, To: b.job.Status}, ErrBuilderSpent
	}
	eff, err := b.job.FinalizeInitialization()
	if err != nil {
		return eff, err
	}
	b.spent = true
	return eff, nil
}

// Job returns the job being built.
func (b *Builder) Job() *Job { return b.job }
