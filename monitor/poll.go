package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/monitoring"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/sirupsen/logrus"
)

// JobAPI is the request/response surface the poll transport needs
type JobAPI interface {
	JobCreator
	JobStatus(ctx context.Context, jobID string) (*upstream.JobStatus, error)
	JobResults(ctx context.Context, jobID string) (*types.ResultSet, error)
}

// PollConfig bounds the poll loop
type PollConfig struct {
	Backoff    Backoff
	MaxCycles  int
	MaxRetries int
	RetryWait  time.Duration
}

// DefaultPollConfig polls for at most 300 cycles and retries network failures three times
var DefaultPollConfig = PollConfig{
	Backoff:    DefaultBackoff,
	MaxCycles:  300,
	MaxRetries: 3,
	RetryWait:  time.Second,
}

// PollTransport drives a job by submitting it and polling its status
type PollTransport struct {
	api    JobAPI
	cfg    PollConfig
	logger *logrus.Logger
	sleep  sleepFunc
}

// NewPollTransport creates a poll transport over api
func NewPollTransport(api JobAPI, cfg PollConfig, logger *logrus.Logger) *PollTransport {
	return &PollTransport{api: api, cfg: cfg, logger: logger, sleep: sleepCtx}
}

func (p *PollTransport) Name() string { return "poll" }

// pollState survives retry escalations
type pollState struct {
	jobID   string
	attempt int
}

// Run submits req and polls until the job is terminal, the budget is spent or ctx is done
func (p *PollTransport) Run(ctx context.Context, req types.FilterRequest, model *ResultModel) error {
	jobID, err := submitJob(ctx, p.api, req)
	if err != nil {
		return err
	}
	model.Submit(jobID)

	log := p.logger.WithField("job_id", jobID)
	log.Info("Filter job submitted")

	st := &pollState{jobID: jobID}
	retry := retryPolicy{
		max:    p.cfg.MaxRetries,
		wait:   p.cfg.RetryWait,
		sleep:  p.sleep,
		logger: log,
		onRetry: func(int, error) {
			monitoring.RecordPollRetry()
		},
	}
	return retry.do(ctx, func() error {
		return p.poll(ctx, model, st, log)
	})
}

func (p *PollTransport) poll(ctx context.Context, model *ResultModel, st *pollState, log *logrus.Entry) error {
	for st.attempt < p.cfg.MaxCycles {
		status, err := p.api.JobStatus(ctx, st.jobID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			monitoring.RecordPollCycle("error")
			return &transientError{err: fmt.Errorf("status request: %w", err)}
		}
		monitoring.RecordPollCycle(status.Status)

		if status.Progress != nil {
			model.Progress(status.Progress.Model())
		}
		if status.Status == upstream.JobRunning && status.PartialResults != nil && status.PartialResults.PartialTweets != nil {
			if model.Partial(status.PartialResults.PartialTweets) {
				log.WithField("items", len(status.PartialResults.PartialTweets)).Debug("Partial results updated")
			}
		}

		switch status.Status {
		case upstream.JobCompleted:
			return p.fetchResults(ctx, model, st, log)
		case upstream.JobFailed:
			msg := status.ErrorMessage
			if msg == "" {
				msg = "Job failed"
			}
			return &JobError{Message: msg}
		case upstream.JobPending, upstream.JobRunning:
		default:
			log.WithField("status", status.Status).Warn("Unknown job status, treating as pending")
		}

		if err := p.sleep(ctx, p.cfg.Backoff.Delay(st.attempt)); err != nil {
			return err
		}
		st.attempt++
	}
	return &TimedOutError{Cycles: st.attempt}
}

func (p *PollTransport) fetchResults(ctx context.Context, model *ResultModel, st *pollState, log *logrus.Entry) error {
	rs, err := p.api.JobResults(ctx, st.jobID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transientError{err: fmt.Errorf("results request: %w", err)}
	}
	if rs == nil {
		return &ProtocolError{Reason: "job completed but no results available"}
	}

	model.Complete(*rs)
	log.WithFields(logrus.Fields{
		"items":  len(rs.Items),
		"passed": rs.Passed(),
		"cycles": st.attempt + 1,
	}).Info("Filter job completed")
	return nil
}
