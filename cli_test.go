package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/config"
	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/Nexora-Open-Source/tweet-filter/monitor"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterService(t *testing.T, status string) *httptest.Server {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/api/filter-job", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"job_id":"job-7"}}`))
	}).Methods(http.MethodPost)
	router.HandleFunc("/api/filter-job/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"status":"` + status + `","progress":{"current":2,"total":2},"error_message":"model overloaded"}}`))
	})
	router.HandleFunc("/api/filter-job/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"results":{"filtered_tweets":[` +
			`{"tweet":{"tweet_id":"1","username":"alice","text":"go 1.24 is out"},"pass":true,"reasoning":"release news"},` +
			`{"tweet":{"tweet_id":"2","username":"bob","text":"lunch"},"pass":false}` +
			`],"summary":"one release announcement"}}}`))
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func runFilterCommand(t *testing.T, apiBase string, args map[string]string) (string, string, error) {
	t.Helper()
	t.Setenv("API_BASE", apiBase)
	t.Setenv("TRANSPORT", "poll")
	t.Setenv("POLL_BASE_DELAY", "10ms")

	prev := appConfig
	t.Cleanup(func() {
		appConfig = prev
		flagQuestion, flagList, flagUsers, flagJSON = "", "", "", false
		middleware.Logger.SetOutput(os.Stderr)
	})
	appConfig = config.NewConfig()
	require.NoError(t, appConfig.Validate())

	flagQuestion = args["question"]
	flagList = args["list"]
	flagUsers = args["users"]
	flagJSON = args["json"] == "true"

	var stdout, stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd.SetContext(ctx)

	err := doFilter(cmd, nil)
	return stdout.String(), stderr.String(), err
}

func TestFilterCommandPrintsVerdicts(t *testing.T) {
	srv := filterService(t, "completed")

	stdout, stderr, err := runFilterCommand(t, srv.URL+"/api", map[string]string{
		"question": "Is this a release announcement?",
		"users":    "alice,\n@bob",
	})
	require.NoError(t, err)

	assert.Contains(t, stderr, "job job-7 submitted over poll")
	assert.Contains(t, stderr, "processed 2/2")
	assert.Contains(t, stdout, "[PASS] @alice: go 1.24 is out")
	assert.Contains(t, stdout, "release news")
	assert.Contains(t, stdout, "[FAIL] @bob: lunch")
	assert.Contains(t, stdout, "1 of 2 tweets passed")
	assert.Contains(t, stdout, "one release announcement")
}

func TestFilterCommandJSON(t *testing.T) {
	srv := filterService(t, "completed")

	stdout, _, err := runFilterCommand(t, srv.URL+"/api", map[string]string{
		"question": "Is this a release announcement?",
		"list":     "golang",
		"json":     "true",
	})
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status": "completed"`)
	assert.Contains(t, stdout, `"list": "golang"`)
}

func TestFilterCommandJobFailure(t *testing.T) {
	srv := filterService(t, "failed")

	stdout, _, err := runFilterCommand(t, srv.URL+"/api", map[string]string{
		"question": "Anything?",
		"list":     "golang",
	})
	require.Error(t, err)
	assert.Equal(t, "job", monitor.Kind(err))
	assert.Contains(t, err.Error(), "model overloaded")
	assert.Contains(t, stdout, "status: failed, no results")
}

func TestFilterCommandRejectsMissingScope(t *testing.T) {
	srv := filterService(t, "completed")

	_, _, err := runFilterCommand(t, srv.URL+"/api", map[string]string{"question": "Anything?"})
	var validation *monitor.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestPrintResultsFallsBackToPartial(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, monitor.Snapshot{
		Job: types.Job{Status: types.StatusTimedOut},
		Partial: &types.ResultSet{Items: []types.FilteredItem{
			{Tweet: types.Tweet{TweetID: "1", Username: "alice", Text: "hi"}, Pass: true},
		}},
	})

	assert.Contains(t, out.String(), "status: timed_out, partial results")
	assert.Contains(t, out.String(), "1 of 1 tweets passed")
	assert.NotContains(t, out.String(), "Summary")
}

func TestProgressPrinterSkipsRepeats(t *testing.T) {
	var out bytes.Buffer
	p := &progressPrinter{out: &out}

	snap := monitor.Snapshot{Transport: "push", Job: types.Job{
		ID:       "job-1",
		Progress: &types.Progress{Processed: 1, Total: 4, Message: "scoring"},
	}}
	p.update(snap)
	p.update(snap)
	snap.Warning = "service hiccup"
	p.update(snap)

	assert.Equal(t, "job job-1 submitted over push\nprocessed 1/4: scoring\nwarning: service hiccup\n", out.String())
}
