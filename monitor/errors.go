package monitor

import (
	"context"
	"errors"
	"fmt"
)

// ErrConnectionLost is reported when the push channel closes before a terminal message
var ErrConnectionLost = errors.New("connection lost")

// ValidationError is bad caller input, detected before any network call
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SubmissionError means the service refused to start the job
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Message != "":
		return "job submission rejected: " + e.Message
	case e.Err != nil:
		return "job submission failed: " + e.Err.Error()
	}
	return "job submission failed"
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// NetworkError is a transient transport failure that outlived the retry budget
type NetworkError struct {
	Retries int
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure after %d retries: %v", e.Retries, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// JobError means the service reported that the job itself failed
type JobError struct {
	Message string
}

func (e *JobError) Error() string {
	return e.Message
}

// ProtocolError means the service answered with an internally inconsistent response
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TimedOutError means the polling budget ran out before a terminal status
type TimedOutError struct {
	Cycles int
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("job timed out after %d poll cycles", e.Cycles)
}

// Error kinds, used as metric labels and for HTTP error mapping
const (
	KindValidation     = "validation"
	KindSubmission     = "submission"
	KindNetwork        = "network"
	KindJob            = "job"
	KindProtocol       = "protocol"
	KindTimeout        = "timeout"
	KindConnectionLost = "connection_lost"
	KindCanceled       = "canceled"
	KindUnknown        = "unknown"
)

// Kind classifies err into one of the error kinds; nil maps to "".
func Kind(err error) string {
	var (
		validation *ValidationError
		submission *SubmissionError
		network    *NetworkError
		job        *JobError
		protocol   *ProtocolError
		timedOut   *TimedOutError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &submission):
		return KindSubmission
	case errors.As(err, &network):
		return KindNetwork
	case errors.As(err, &job):
		return KindJob
	case errors.As(err, &protocol):
		return KindProtocol
	case errors.As(err, &timedOut):
		return KindTimeout
	case errors.Is(err, ErrConnectionLost):
		return KindConnectionLost
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindUnknown
}

// transientError marks a failure the retry wrapper may recover from
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }
