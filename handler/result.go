package handler

// Result describes how a command was handled.
type Result string

const (
	// ResultApplied means the command mutated state and the change was committed.
	ResultApplied Result = "applied"
	// ResultDuplicate means the command was already applied (redelivery,
	// repeated correlation id, or a batch offset already checkpointed).
	ResultDuplicate Result = "duplicate"
	// ResultNotFound means the target job or item does not exist.
	ResultNotFound Result = "not_found"
	// ResultAlreadyTerminal means the target job or item is terminal.
	ResultAlreadyTerminal Result = "already_terminal"
	// ResultIgnored means the target exists but is not in a state the
	// command applies to.
	ResultIgnored Result = "ignored"
)

// String returns the result name.
func (r Result) String() string { return string(r) }

// Applied reports whether the command changed state.
func (r Result) Applied() bool { return r == ResultApplied }
