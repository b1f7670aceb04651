package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound means no assessment state exists for the session.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrNotStarted is returned for operations on a state that was never started.
	ErrNotStarted = errors.New("assessment not started")
	// ErrNotFinished is returned when finalizing before the assessment finished.
	ErrNotFinished = errors.New("assessment not finished")
	// ErrUnknownOption means the label does not name an option of the question.
	ErrUnknownOption = errors.New("unknown option")
	// ErrStaleSubmission matches every *StaleSubmissionError.
	ErrStaleSubmission = errors.New("stale submission")
)

// StaleSubmissionError rejects an answer for a question the session is not
// currently expecting. The state is left unchanged and the client may retry
// with the expected question.
type StaleSubmissionError struct {
	SessionID string
	Expected  int
	Got       int
}

func (e *StaleSubmissionError) Error() string {
	if e.Expected == 0 {
		return fmt.Sprintf("session %s: answer for question %d rejected, no question is pending", e.SessionID, e.Got)
	}
	return fmt.Sprintf("session %s: answer for question %d rejected, expected question %d", e.SessionID, e.Got, e.Expected)
}

func (e *StaleSubmissionError) Is(target error) bool {
	return target == ErrStaleSubmission
}

// Retryable is always true for stale submissions.
func (e *StaleSubmissionError) Retryable() bool { return true }

// IsRetryable reports whether err carries a retryable signal.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
