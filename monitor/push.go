package monitor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Nexora-Open-Source/tweet-filter/monitoring"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/sirupsen/logrus"
)

// PushTransport drives a job over a persistent channel
type PushTransport struct {
	dialer upstream.Dialer
	logger *logrus.Logger
}

// NewPushTransport creates a push transport over dialer
func NewPushTransport(dialer upstream.Dialer, logger *logrus.Logger) *PushTransport {
	return &PushTransport{dialer: dialer, logger: logger}
}

func (p *PushTransport) Name() string { return "push" }

// Run opens a channel, sends req and dispatches inbound messages until a
// terminal message arrives, the channel closes or ctx is done.
func (p *PushTransport) Run(ctx context.Context, req types.FilterRequest, model *ResultModel) error {
	ch, err := openChannel(ctx, p.dialer, req)
	if err != nil {
		return err
	}
	model.Submit("")
	p.logger.Info("Filter request sent over push channel")

	for {
		select {
		case <-ctx.Done():
			_ = ch.Close(upstream.CloseGoingAway, "operation abandoned")
			return ctx.Err()

		case ev, ok := <-ch.Events():
			if !ok {
				return ErrConnectionLost
			}

			switch {
			case ev.Closed:
				_ = ch.Close(upstream.CloseNormalClosure, "")
				p.logger.WithFields(logrus.Fields{
					"code":   ev.CloseCode,
					"reason": ev.CloseReason,
				}).Warn("Push channel closed before a terminal message")
				return fmt.Errorf("%w (close code %d)", ErrConnectionLost, ev.CloseCode)

			case ev.Err != nil:
				p.logger.WithError(ev.Err).Warn("Push channel error")
				model.Warn(ev.Err.Error())

			case ev.Message != nil:
				done, err := p.dispatch(*ev.Message, model)
				if done {
					_ = ch.Close(upstream.CloseNormalClosure, "")
					return err
				}
			}
		}
	}
}

// dispatch applies one message to the model and reports whether it was terminal
func (p *PushTransport) dispatch(msg upstream.Message, model *ResultModel) (bool, error) {
	monitoring.RecordPushMessage(msg.Type)

	switch msg.Type {
	case upstream.MessageProgress:
		var progress upstream.Progress
		if err := json.Unmarshal(msg.Data, &progress); err != nil {
			p.logger.WithError(err).Warn("Ignoring undecodable progress message")
			return false, nil
		}
		model.Progress(progress.Model())
		return false, nil

	case upstream.MessageResult:
		if len(msg.Data) == 0 || string(msg.Data) == "null" {
			return true, &ProtocolError{Reason: "result message without results"}
		}
		var results upstream.Results
		if err := json.Unmarshal(msg.Data, &results); err != nil {
			return true, &ProtocolError{Reason: "undecodable result message", Err: err}
		}
		rs := results.ResultSet()
		model.Complete(rs)
		p.logger.WithFields(logrus.Fields{
			"items":  len(rs.Items),
			"passed": rs.Passed(),
		}).Info("Filter job completed")
		return true, nil

	case upstream.MessageError:
		var payload upstream.ErrorPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Message == "" {
			payload.Message = "Job failed"
		}
		return true, &JobError{Message: payload.Message}
	}

	p.logger.WithField("type", msg.Type).Debug("Ignoring unknown push message type")
	return false, nil
}
