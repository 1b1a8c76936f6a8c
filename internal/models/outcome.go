package models

// OutcomeState is the terminal state of one orchestration run.
type OutcomeState string

const (
	OutcomeClean     OutcomeState = "clean"
	OutcomeMalicious OutcomeState = "malicious"
	OutcomeFailed    OutcomeState = "failed"
)

// Outcome is what a scan-upload run hands back to its caller. Record is set for the two completed
// states, Message for a failed run. No structured error crosses this boundary.
type Outcome struct {
	State    OutcomeState `json:"state"`
	Filename string       `json:"filename"`
	Record   *FileRecord  `json:"record,omitempty"`
	Message  string       `json:"message,omitempty"`

	// Retryable is set on failed runs whose cause may go away on a later attempt.
	Retryable bool `json:"-"`
}

func (o Outcome) Failed() bool { return o.State == OutcomeFailed }
