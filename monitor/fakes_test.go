package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errNetwork = errors.New("dial tcp: connection refused")

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func running(current, total int) statusStep {
	return statusStep{status: &upstream.JobStatus{
		Status:   upstream.JobRunning,
		Progress: &upstream.Progress{Current: current, Total: total},
	}}
}

func item(id string, pass bool) types.FilteredItem {
	return types.FilteredItem{
		Tweet:     types.Tweet{Username: "alice", Text: "tweet " + id, TweetID: id},
		Pass:      pass,
		Reasoning: "because",
	}
}

type statusStep struct {
	status *upstream.JobStatus
	err    error
}

// fakeAPI replays scripted status responses; the last step repeats forever
type fakeAPI struct {
	mu           sync.Mutex
	jobID        string
	createErr    error
	created      []types.FilterRequest
	steps        []statusStep
	statusCalls  int
	results      *types.ResultSet
	resultsErrs  []error
	resultsCalls int
}

func (f *fakeAPI) CreateFilterJob(ctx context.Context, req types.FilterRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.jobID, nil
}

func (f *fakeAPI) JobStatus(ctx context.Context, jobID string) (*upstream.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.statusCalls++
	step := f.steps[i]
	return step.status, step.err
}

func (f *fakeAPI) JobResults(ctx context.Context, jobID string) (*types.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultsCalls++
	if len(f.resultsErrs) > 0 {
		err := f.resultsErrs[0]
		f.resultsErrs = f.resultsErrs[1:]
		return nil, err
	}
	return f.results, nil
}

// sleepRecorder replaces real waiting in the poll loop
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestPollTransport(api JobAPI, cfg PollConfig) (*PollTransport, *sleepRecorder) {
	rec := &sleepRecorder{}
	p := NewPollTransport(api, cfg, quietLogger())
	p.sleep = rec.sleep
	return p, rec
}

// fakeChannel is a scripted push channel
type fakeChannel struct {
	events  chan upstream.Event
	sendErr error

	mu     sync.Mutex
	sent   []any
	closes []int
}

func newFakeChannel(events ...upstream.Event) *fakeChannel {
	ch := &fakeChannel{events: make(chan upstream.Event, len(events)+1)}
	for _, ev := range events {
		ch.events <- ev
	}
	return ch
}

func (c *fakeChannel) Send(ctx context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return c.sendErr
}

func (c *fakeChannel) Events() <-chan upstream.Event { return c.events }

func (c *fakeChannel) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes = append(c.closes, code)
	return nil
}

func (c *fakeChannel) closeCodes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.closes...)
}

type fakeDialer struct {
	ch  upstream.Channel
	err error
}

func (d *fakeDialer) Dial(ctx context.Context) (upstream.Channel, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.ch, nil
}

func message(msgType, data string) upstream.Event {
	msg := upstream.Message{Type: msgType}
	if data != "" {
		msg.Data = []byte(data)
	}
	return upstream.Event{Message: &msg}
}

func closed(code int) upstream.Event {
	return upstream.Event{Closed: true, CloseCode: code}
}
