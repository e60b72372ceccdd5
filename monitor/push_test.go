package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usersRequest = types.FilterRequest{Question: "Is this a forecast?", Users: []string{"alice", "bob"}}

func runPush(t *testing.T, ch *fakeChannel) (*ResultModel, error) {
	t.Helper()
	m := New(NewPushTransport(&fakeDialer{ch: ch}, quietLogger()), quietLogger())
	defer m.Close()

	model, err := m.Run(context.Background(), usersRequest)
	require.NotNil(t, model)
	return model, err
}

func TestPushScenarioProgressThenResult(t *testing.T) {
	ch := newFakeChannel(
		message(upstream.MessageProgress, `{"current":1,"total":3,"message":"scoring"}`),
		message(upstream.MessageProgress, `{"current":3,"total":3}`),
		message(upstream.MessageResult, `{"filtered_tweets":[
			{"tweet":{"username":"alice","tweet_id":"1"},"pass":true,"reasoning":"yes"},
			{"tweet":{"username":"bob","tweet_id":"2"},"pass":false,"reasoning":"no"}
		],"summary":"one forecast"}`),
		closed(upstream.CloseNormalClosure),
	)

	var progress []types.Progress
	m := New(NewPushTransport(&fakeDialer{ch: ch}, quietLogger()), quietLogger())
	defer m.Close()
	model, err := m.Run(context.Background(), usersRequest, func(s Snapshot) {
		if s.Job.Progress != nil {
			progress = append(progress, *s.Job.Progress)
		}
	})
	require.NoError(t, err)

	snap := model.Snapshot()
	assert.Equal(t, types.StatusCompleted, snap.Job.Status)
	assert.Empty(t, snap.Job.ID)
	require.NotNil(t, snap.Final)
	assert.Len(t, snap.Final.Items, 2)
	assert.Equal(t, 1, snap.Final.Passed())
	require.NotNil(t, snap.Final.Summary)
	assert.Equal(t, "one forecast", *snap.Final.Summary)
	assert.Empty(t, snap.Error)

	assert.Equal(t, []types.Progress{
		{Processed: 1, Total: 3, Message: "scoring"},
		{Processed: 3, Total: 3},
	}, progress)

	// request first, then a deliberate normal closure
	assert.Equal(t, []any{usersRequest}, ch.sent)
	assert.Equal(t, []int{upstream.CloseNormalClosure}, ch.closeCodes())
}

func TestPushScenarioCloseWithoutTerminalMessage(t *testing.T) {
	ch := newFakeChannel(
		message(upstream.MessageProgress, `{"current":1,"total":3}`),
		closed(upstream.CloseAbnormalClosure),
	)

	model, err := runPush(t, ch)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionLost))
	snap := model.Snapshot()
	assert.Equal(t, types.StatusFailed, snap.Job.Status)
	assert.Equal(t, KindConnectionLost, snap.ErrorKind)
	assert.Contains(t, snap.Error, "connection lost")
	assert.Nil(t, snap.Final)
}

func TestPushEventsChannelEndsWithoutClose(t *testing.T) {
	ch := newFakeChannel()
	close(ch.events)

	model, err := runPush(t, ch)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Equal(t, types.StatusFailed, model.Status())
}

func TestPushErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"object payload", `{"message":"rate limited by model provider"}`, "rate limited by model provider"},
		{"string payload", `"no such list"`, "no such list"},
		{"no payload", ``, "Job failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newFakeChannel(message(upstream.MessageError, tt.data))

			model, err := runPush(t, ch)

			var jobErr *JobError
			require.ErrorAs(t, err, &jobErr)
			assert.Equal(t, tt.want, jobErr.Message)
			assert.Equal(t, types.StatusFailed, model.Status())
			assert.Equal(t, []int{upstream.CloseNormalClosure}, ch.closeCodes())
		})
	}
}

func TestPushErrorEventDoesNotTerminate(t *testing.T) {
	ch := newFakeChannel(
		upstream.Event{Err: errors.New("websocket: read tcp: i/o timeout")},
		message(upstream.MessageResult, `{"filtered_tweets":[]}`),
	)

	var warnings []string
	m := New(NewPushTransport(&fakeDialer{ch: ch}, quietLogger()), quietLogger())
	defer m.Close()
	model, err := m.Run(context.Background(), usersRequest, func(s Snapshot) {
		if s.Warning != "" && s.Job.Status == types.StatusRunning {
			warnings = append(warnings, s.Warning)
		}
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"websocket: read tcp: i/o timeout"}, warnings)
	assert.Equal(t, types.StatusCompleted, model.Status())
}

func TestPushErrorEventThenClose(t *testing.T) {
	ch := newFakeChannel(
		upstream.Event{Err: errors.New("websocket: read tcp: connection reset")},
		closed(upstream.CloseAbnormalClosure),
	)

	model, err := runPush(t, ch)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Equal(t, types.StatusFailed, model.Status())
}

func TestPushIgnoresUnknownAndBadProgress(t *testing.T) {
	ch := newFakeChannel(
		message("heartbeat", `{}`),
		message(upstream.MessageProgress, `"half"`),
		message(upstream.MessageResult, `{"filtered_tweets":[{"tweet":{"tweet_id":"9"},"pass":true}]}`),
	)

	model, err := runPush(t, ch)
	require.NoError(t, err)
	assert.Len(t, model.Snapshot().Final.Items, 1)
}

func TestPushMalformedResult(t *testing.T) {
	for name, data := range map[string]string{
		"not an object": `[1,2,3]`,
		"null":          `null`,
	} {
		t.Run(name, func(t *testing.T) {
			ch := newFakeChannel(message(upstream.MessageResult, data))

			model, err := runPush(t, ch)

			var protoErr *ProtocolError
			require.ErrorAs(t, err, &protoErr)
			assert.Equal(t, types.StatusFailed, model.Status())
			assert.Equal(t, KindProtocol, model.Snapshot().ErrorKind)
		})
	}
}

func TestPushTerminalIgnoresLaterMessages(t *testing.T) {
	ch := newFakeChannel(
		message(upstream.MessageResult, `{"filtered_tweets":[{"tweet":{"tweet_id":"1"},"pass":true}]}`),
		message(upstream.MessageError, `{"message":"late"}`),
		closed(upstream.CloseAbnormalClosure),
	)

	model, err := runPush(t, ch)
	require.NoError(t, err)

	snap := model.Snapshot()
	assert.Equal(t, types.StatusCompleted, snap.Job.Status)
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.Final.Items, 1)
}

func TestPushDialFailure(t *testing.T) {
	m := New(NewPushTransport(&fakeDialer{err: errNetwork}, quietLogger()), quietLogger())
	defer m.Close()

	model, err := m.Run(context.Background(), usersRequest)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, types.StatusFailed, model.Status())
}

func TestPushAbandonClosesChannel(t *testing.T) {
	ch := newFakeChannel(message(upstream.MessageProgress, `{"current":1,"total":3}`))
	ctx, cancel := context.WithCancel(context.Background())

	m := New(NewPushTransport(&fakeDialer{ch: ch}, quietLogger()), quietLogger())
	defer m.Close()

	_, err := m.Run(ctx, usersRequest, func(s Snapshot) {
		if s.Job.Progress != nil {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{upstream.CloseGoingAway}, ch.closeCodes())
}
