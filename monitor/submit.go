package monitor

import (
	"context"
	"errors"

	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
)

// ValidateRequest normalizes req and checks that it names a question and exactly one scope
func ValidateRequest(req types.FilterRequest) (types.FilterRequest, error) {
	norm := req.Normalize()

	if norm.Question == "" {
		return norm, &ValidationError{Field: "question", Reason: "must not be empty"}
	}

	hasList := norm.List != ""
	hasUsers := len(norm.Users) > 0
	switch {
	case hasList && hasUsers:
		return norm, &ValidationError{Field: "scope", Reason: "give either a list or users, not both"}
	case !hasList && len(req.Users) > 0 && !hasUsers:
		return norm, &ValidationError{Field: "users", Reason: "no usernames left after dropping blank entries"}
	case !hasList && !hasUsers:
		return norm, &ValidationError{Field: "scope", Reason: "a list or a set of users is required"}
	}
	return norm, nil
}

// JobCreator starts filter jobs on the poll transport
type JobCreator interface {
	CreateFilterJob(ctx context.Context, req types.FilterRequest) (string, error)
}

// submitJob creates a job and classifies any failure as a SubmissionError
func submitJob(ctx context.Context, api JobCreator, req types.FilterRequest) (string, error) {
	jobID, err := api.CreateFilterJob(ctx, req)
	if err == nil {
		return jobID, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	subErr := &SubmissionError{Err: err}
	var httpErr *upstream.HTTPError
	if errors.As(err, &httpErr) {
		subErr.StatusCode = httpErr.StatusCode
		subErr.Message = httpErr.Message
	}
	return "", subErr
}

// openChannel dials the push channel and primes it with the request
func openChannel(ctx context.Context, dialer upstream.Dialer, req types.FilterRequest) (upstream.Channel, error) {
	ch, err := dialer.Dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		subErr := &SubmissionError{Err: err}
		var httpErr *upstream.HTTPError
		if errors.As(err, &httpErr) {
			subErr.StatusCode = httpErr.StatusCode
		}
		return nil, subErr
	}

	if err := ch.Send(ctx, req); err != nil {
		_ = ch.Close(upstream.CloseGoingAway, "request not sent")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SubmissionError{Err: err}
	}
	return ch, nil
}
