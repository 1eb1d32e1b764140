package nats_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/job"
	jnats "github.com/xraph/jobcore/transport/nats"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want jnats.Action
	}{
		{"success", nil, jnats.ActionAck},
		{"invalid", jobcore.ErrInvalidCommand, jnats.ActionTerm},
		{"wrapped invalid", fmt.Errorf("decode: %w", jobcore.ErrInvalidCommand), jnats.ActionTerm},
		{"store failure", errors.New("connection reset"), jnats.ActionNak},
		{"deadline", context.DeadlineExceeded, jnats.ActionNak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := jnats.Decide(tt.err); got != tt.want {
				t.Errorf("Decide(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestDecideUndecodable(t *testing.T) {
	t.Parallel()
	_, _, err := command.Decode(command.JSON, []byte("{not json"))
	if got := jnats.Decide(err); got != jnats.ActionTerm {
		t.Errorf("Decide(decode error) = %s, want term", got)
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()
	got := jnats.Subject(jnats.DefaultSubjectPrefix, command.KindCreateJob)
	if got != "jobcore.commands.job.create" {
		t.Errorf("Subject = %q", got)
	}
}

func TestMessageID(t *testing.T) {
	t.Parallel()

	create := &command.CreateJob{JobType: job.TypeAuctionExport, CorrelationID: "export-1"}
	envA, _, err := command.Encode(command.JSON, create)
	if err != nil {
		t.Fatal(err)
	}
	envB, _, _ := command.Encode(command.JSON, create)

	if a, b := jnats.MessageID(envA, create), jnats.MessageID(envB, create); a != b {
		t.Errorf("creation ids differ across envelopes: %s vs %s", a, b)
	}

	other := &command.CreateJob{JobType: job.TypeAuctionExport, CorrelationID: "export-2"}
	if jnats.MessageID(envA, create) == jnats.MessageID(envA, other) {
		t.Error("different correlation ids share a message id")
	}

	jobID := id.NewJobID()
	off := int64(500)
	batch := &command.AddJobItemsBatch{JobID: jobID, SourceOffset: &off}
	envC, _, _ := command.Encode(command.JSON, batch)
	envD, _, _ := command.Encode(command.JSON, batch)
	if jnats.MessageID(envC, batch) != jnats.MessageID(envD, batch) {
		t.Error("offset batch ids differ across envelopes")
	}

	start := &command.StartJob{JobID: jobID}
	envE, _, _ := command.Encode(command.JSON, start)
	if got := jnats.MessageID(envE, start); got != envE.ID.String() {
		t.Errorf("start id = %s, want envelope id %s", got, envE.ID)
	}

	unsized := &command.AddJobItemsBatch{JobID: jobID}
	envF, _, _ := command.Encode(command.JSON, unsized)
	if got := jnats.MessageID(envF, unsized); got != envF.ID.String() {
		t.Errorf("batch without offset id = %s, want envelope id", got)
	}
}
