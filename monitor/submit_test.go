package monitor

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       types.FilterRequest
		wantField string
		want      types.FilterRequest
	}{
		{
			name: "list scope",
			req:  types.FilterRequest{Question: "  Is it about AI?  ", List: " ai "},
			want: types.FilterRequest{Question: "Is it about AI?", List: "ai"},
		},
		{
			name: "users scope drops blanks",
			req:  types.FilterRequest{Question: "q", Users: []string{" alice ", "", "  ", "bob"}},
			want: types.FilterRequest{Question: "q", Users: []string{"alice", "bob"}},
		},
		{
			name: "blank users beside a list",
			req:  types.FilterRequest{Question: "q", List: "ai", Users: []string{"  ", ""}},
			want: types.FilterRequest{Question: "q", List: "ai"},
		},
		{
			name:      "empty question",
			req:       types.FilterRequest{Question: "   ", List: "ai"},
			wantField: "question",
		},
		{
			name:      "both scopes",
			req:       types.FilterRequest{Question: "q", List: "ai", Users: []string{"alice"}},
			wantField: "scope",
		},
		{
			name:      "neither scope",
			req:       types.FilterRequest{Question: "q"},
			wantField: "scope",
		},
		{
			name:      "users all blank",
			req:       types.FilterRequest{Question: "q", Users: []string{" ", ""}},
			wantField: "users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateRequest(tt.req)
			if tt.wantField != "" {
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantField, vErr.Field)
				assert.Equal(t, KindValidation, Kind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmitJobClassifiesFailures(t *testing.T) {
	api := &fakeAPI{createErr: &upstream.HTTPError{StatusCode: http.StatusBadRequest, Message: "unknown list"}}

	_, err := submitJob(context.Background(), api, types.FilterRequest{Question: "q", List: "nope"})

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusBadRequest, subErr.StatusCode)
	assert.Equal(t, "unknown list", subErr.Message)
	assert.Equal(t, "job submission rejected: unknown list", err.Error())

	api = &fakeAPI{createErr: upstream.ErrMalformedResponse}
	_, err = submitJob(context.Background(), api, types.FilterRequest{Question: "q", List: "ai"})
	require.ErrorAs(t, err, &subErr)
	assert.True(t, errors.Is(err, upstream.ErrMalformedResponse))
	assert.Equal(t, KindSubmission, Kind(err))
}

func TestOpenChannelSendsRequestFirst(t *testing.T) {
	ch := newFakeChannel()
	req := types.FilterRequest{Question: "q", Users: []string{"alice"}}

	got, err := openChannel(context.Background(), &fakeDialer{ch: ch}, req)
	require.NoError(t, err)
	assert.Same(t, ch, got)
	assert.Equal(t, []any{req}, ch.sent)

	ch = newFakeChannel()
	ch.sendErr = errNetwork
	_, err = openChannel(context.Background(), &fakeDialer{ch: ch}, req)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, []int{upstream.CloseGoingAway}, ch.closeCodes())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, KindJob, Kind(&JobError{Message: "x"}))
	assert.Equal(t, KindProtocol, Kind(&ProtocolError{Reason: "x"}))
	assert.Equal(t, KindTimeout, Kind(&TimedOutError{Cycles: 1}))
	assert.Equal(t, KindNetwork, Kind(&NetworkError{Err: errNetwork}))
	assert.Equal(t, KindConnectionLost, Kind(ErrConnectionLost))
	assert.Equal(t, KindCanceled, Kind(context.Canceled))
	assert.Equal(t, KindUnknown, Kind(errors.New("boom")))
}
