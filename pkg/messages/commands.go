package messages

import (
	"github.com/google/uuid"
	"go-omnicontrol/internal/decision"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/perception"
)

// Tag identifies the job and cycle a message belongs to. The session drops any tagged message that
// does not match its active cycle.
type Tag struct {
	JobID uuid.UUID
	Cycle int
}

// requests from callers

type StartObjective struct {
	Objective string
}

type StartAccepted struct {
	JobID uuid.UUID
}

type StopObjective struct{}

type StopAccepted struct {
	JobID uuid.UUID
}

type GetStatus struct{}

type GetEvents struct {
	Since int
}

type GetFrame struct{}

type GetPerception struct{}

// cycle messages between the session and its workers

type Capture struct {
	Tag
}

type Perceive struct {
	Tag
	Frame *desktop.Frame
}

type PerceptionAttemptFailed struct {
	Tag
	Attempt int
	Err     error
}

type PerceptionSucceeded struct {
	Tag
	Attempts int
	Result   *perception.Result
}

type PerceptionFailed struct {
	Tag
	Attempts int
	Err      error
}

type Decide struct {
	Tag
	Frame     *desktop.Frame
	Elements  string
	Objective string
}

type DecisionMade struct {
	Tag
	Action decision.Action
}

type DecisionFailed struct {
	Tag
	Err error
}
