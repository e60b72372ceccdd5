/*
Package upstream talks to the remote tweet filter service.

Client performs single request/response calls against the REST API and
WSDialer opens the persistent channel used by the push transport. Neither
knows anything about job lifecycles.
*/
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/monitoring"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public instance of the tweet filter service
const DefaultBaseURL = "https://tweets.nunosempere.com/api"

// ErrMalformedResponse is returned when a 2xx response body cannot be understood
var ErrMalformedResponse = errors.New("malformed response")

// HTTPError is a non-2xx answer from the remote service
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// Options configures a Client
type Options struct {
	BaseURL           string
	SubmitTimeout     time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

// Client is a REST client for the remote tweet filter service
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	limiter        *rate.Limiter
	logger         *logrus.Logger
	submitTimeout  time.Duration
	requestTimeout time.Duration
}

// NewClient validates the base URL and builds a client
func NewClient(opts Options, logger *logrus.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" || baseURL.Host == "" {
		return nil, fmt.Errorf("base url must be absolute http(s), got %q", opts.BaseURL)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		baseURL:        baseURL,
		http:           httpClient,
		limiter:        rate.NewLimiter(limit, burst),
		logger:         logger,
		submitTimeout:  opts.SubmitTimeout,
		requestTimeout: opts.RequestTimeout,
	}, nil
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type call struct {
	method   string
	path     string
	query    url.Values
	body     any
	timeout  time.Duration
	endpoint string
}

// do performs one call and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if cl.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cl.timeout)
		defer cancel()
	}

	ctx, span := monitoring.CreateSpan(ctx, "upstream "+cl.endpoint)
	defer span.End()

	u := *c.baseURL
	u.Path = c.baseURL.Path + cl.path
	if cl.query != nil {
		u.RawQuery = cl.query.Encode()
	}
	monitoring.SetSpanAttributes(span, map[string]interface{}{
		"http.method": cl.method,
		"http.url":    u.String(),
	})

	var reader io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		monitoring.RecordUpstreamRequest(cl.endpoint, "error", time.Since(start).Seconds())
		monitoring.SetSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	monitoring.RecordUpstreamRequest(cl.endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	monitoring.SetSpanAttributes(span, map[string]interface{}{"http.status_code": resp.StatusCode})
	if err != nil {
		monitoring.SetSpanError(span, err)
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode}
		var problem struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &problem) == nil {
			httpErr.Message = problem.Message
			if httpErr.Message == "" {
				httpErr.Message = problem.Error
			}
		}
		monitoring.SetSpanError(span, httpErr)
		c.logger.WithFields(logrus.Fields{
			"endpoint":    cl.endpoint,
			"status_code": resp.StatusCode,
			"message":     httpErr.Message,
		}).Debug("Upstream returned an error status")
		return nil, httpErr
	}

	return body, nil
}

// decodeData unwraps the {"data": ...} envelope used by most endpoints
func decodeData(body []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Health returns the status string reported by the service
func (c *Client) Health(ctx context.Context) (string, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: "/health", timeout: c.requestTimeout, endpoint: "health"})
	if err != nil {
		return "", err
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Status == "" {
		return "", fmt.Errorf("%w: health status", ErrMalformedResponse)
	}
	return resp.Status, nil
}

// ListAccounts returns the accounts monitored by the service
func (c *Client) ListAccounts(ctx context.Context) ([]types.Account, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: "/accounts", timeout: c.requestTimeout, endpoint: "accounts"})
	if err != nil {
		return nil, err
	}
	var accounts []types.Account
	if err := decodeData(body, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// AddAccount registers an account and returns the service's confirmation message
func (c *Client) AddAccount(ctx context.Context, account types.Account) (string, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/accounts",
		body:     account,
		timeout:  c.requestTimeout,
		endpoint: "add_account",
	})
	if err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &resp)
	return resp.Message, nil
}

type tweetsPayload struct {
	Tweets []types.Tweet `json:"tweets"`
}

// Tweets lists recent tweets, optionally restricted to a named list
func (c *Client) Tweets(ctx context.Context, list string, limit int) ([]types.Tweet, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if list != "" {
		q.Set("list", list)
	}
	body, err := c.do(ctx, call{method: http.MethodGet, path: "/tweets", query: q, timeout: c.requestTimeout, endpoint: "tweets"})
	if err != nil {
		return nil, err
	}
	var payload tweetsPayload
	if err := decodeData(body, &payload); err != nil {
		return nil, err
	}
	return payload.Tweets, nil
}

// UserTweets lists recent tweets of one account
func (c *Client) UserTweets(ctx context.Context, username string, limit int) ([]types.Tweet, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/tweets/" + url.PathEscape(username),
		query:    q,
		timeout:  c.requestTimeout,
		endpoint: "user_tweets",
	})
	if err != nil {
		return nil, err
	}
	var payload tweetsPayload
	if err := decodeData(body, &payload); err != nil {
		return nil, err
	}
	return payload.Tweets, nil
}

// CreateFilterJob starts a filter job and returns its identifier
func (c *Client) CreateFilterJob(ctx context.Context, req types.FilterRequest) (string, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/filter-job",
		body:     req,
		timeout:  c.submitTimeout,
		endpoint: "create_filter_job",
	})
	if err != nil {
		return "", err
	}
	var created struct {
		JobID string `json:"job_id"`
	}
	if err := decodeData(body, &created); err != nil {
		return "", err
	}
	if created.JobID == "" {
		return "", fmt.Errorf("%w: missing job_id", ErrMalformedResponse)
	}
	return created.JobID, nil
}

// JobStatus fetches the current status of a filter job
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/filter-job/" + url.PathEscape(jobID) + "/status",
		timeout:  c.requestTimeout,
		endpoint: "job_status",
	})
	if err != nil {
		return nil, err
	}
	var status JobStatus
	if err := decodeData(body, &status); err != nil {
		return nil, err
	}
	if status.Status == "" {
		return nil, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	}
	return &status, nil
}

// JobResults fetches the final results of a completed job.
// A nil set with a nil error means the service answered without results.
func (c *Client) JobResults(ctx context.Context, jobID string) (*types.ResultSet, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/filter-job/" + url.PathEscape(jobID) + "/results",
		timeout:  c.requestTimeout,
		endpoint: "job_results",
	})
	if err != nil {
		return nil, err
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	// a missing data envelope means no results, like "results": null
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	var payload struct {
		Results *Results `json:"results"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Results == nil {
		return nil, nil
	}
	rs := payload.Results.ResultSet()
	return &rs, nil
}
