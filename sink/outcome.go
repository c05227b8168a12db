package sink

import "fmt"

// Status is the terminal state of one batch against one sink.
type Status int

const (
	// StatusCommitted means the sink acknowledged every record in the batch.
	StatusCommitted Status = iota + 1

	// StatusRetriesExhausted means every attempt failed with a transient error.
	StatusRetriesExhausted

	// StatusFatal means the batch failed validation or hit a non-retryable
	// error; it was not retried further.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusRetriesExhausted:
		return "retries-exhausted"
	case StatusFatal:
		return "fatal"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome records how a batch fared against a single sink. The two sinks of a
// batch get independent outcomes; one never alters the other.
type Outcome struct {
	Status   Status
	Attempts int
	Err      error
}

// Committed reports whether the sink acknowledged the batch.
func (o Outcome) Committed() bool {
	return o.Status == StatusCommitted
}
