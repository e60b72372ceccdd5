package monitor

import (
	"sync"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/types"
)

// Snapshot is a read-only copy of a ResultModel at one version
type Snapshot struct {
	Version     uint64           `json:"version"`
	OperationID string           `json:"operation_id"`
	Transport   string           `json:"transport"`
	Job         types.Job        `json:"job"`
	Partial     *types.ResultSet `json:"partial,omitempty"`
	Final       *types.ResultSet `json:"final,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   string           `json:"error_kind,omitempty"`
	Warning     string           `json:"warning,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ResultModel is the single state container of one filter operation.
// Transports mutate it through one entry point per event kind; once the job is
// terminal every mutation is rejected. Readers get deep copies via Snapshot.
type ResultModel struct {
	mu          sync.Mutex
	operationID string
	transport   string
	job         types.Job
	partial     *types.ResultSet
	final       *types.ResultSet
	err         error
	warning     string
	version     uint64
	startedAt   time.Time
	updatedAt   time.Time

	changed   chan struct{}
	done      chan struct{}
	listeners map[int]func(Snapshot)
	nextID    int
}

// NewResultModel creates a pending model for one operation
func NewResultModel(operationID, transport string, req types.FilterRequest) *ResultModel {
	now := time.Now()
	return &ResultModel{
		operationID: operationID,
		transport:   transport,
		job: types.Job{
			Status:   types.StatusPending,
			Question: req.Question,
			Scope:    req.Scope(),
		},
		startedAt: now,
		updatedAt: now,
		changed:   make(chan struct{}),
		done:      make(chan struct{}),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to run after every accepted mutation and returns a
// function that removes it. fn runs on the mutating goroutine.
func (m *ResultModel) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Changed returns a channel closed on the next accepted mutation
func (m *ResultModel) Changed() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed
}

// Done returns a channel closed once the job is terminal
func (m *ResultModel) Done() <-chan struct{} {
	return m.done
}

// Err returns the terminal error, nil while running or after completion
func (m *ResultModel) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Status returns the current job status
func (m *ResultModel) Status() types.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job.Status
}

// Snapshot returns a deep copy of the current state
func (m *ResultModel) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *ResultModel) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:     m.version,
		OperationID: m.operationID,
		Transport:   m.transport,
		Job:         m.job,
		Partial:     cloneResultSet(m.partial),
		Final:       cloneResultSet(m.final),
		Warning:     m.warning,
		StartedAt:   m.startedAt,
		UpdatedAt:   m.updatedAt,
	}
	s.Job.Scope.Users = append([]string(nil), m.job.Scope.Users...)
	if m.job.Progress != nil {
		p := *m.job.Progress
		s.Job.Progress = &p
	}
	if m.err != nil {
		s.Error = m.err.Error()
		s.ErrorKind = Kind(m.err)
	}
	return s
}

// mutate applies fn under the lock if the job is not terminal, then notifies
// listeners outside the lock. It reports whether the mutation was accepted.
func (m *ResultModel) mutate(fn func() bool) bool {
	m.mu.Lock()
	if m.job.Status.IsTerminal() || !fn() {
		m.mu.Unlock()
		return false
	}

	m.version++
	m.updatedAt = time.Now()
	close(m.changed)
	m.changed = make(chan struct{})
	if m.job.Status.IsTerminal() {
		close(m.done)
	}

	snap := m.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return true
}

// Submit records the job identifier and moves the job from pending to running.
// The push transport has no identifier and passes "".
func (m *ResultModel) Submit(jobID string) bool {
	return m.mutate(func() bool {
		if m.job.Status != types.StatusPending {
			return false
		}
		m.job.ID = jobID
		m.job.Status = types.StatusRunning
		return true
	})
}

// Progress replaces the progress report of a running job
func (m *ResultModel) Progress(p types.Progress) bool {
	return m.mutate(func() bool {
		if m.job.Status != types.StatusRunning {
			return false
		}
		m.job.Progress = &p
		return true
	})
}

// Partial replaces the partial result set wholesale. Partial summaries are
// not kept: the summary belongs to the final set only.
func (m *ResultModel) Partial(items []types.FilteredItem) bool {
	return m.mutate(func() bool {
		if m.job.Status != types.StatusRunning {
			return false
		}
		m.partial = &types.ResultSet{Items: dedupe(items)}
		return true
	})
}

// Warn surfaces a non-terminal problem, such as a channel error event
func (m *ResultModel) Warn(message string) bool {
	return m.mutate(func() bool {
		m.warning = message
		return true
	})
}

// Complete commits the final result set and completes the job
func (m *ResultModel) Complete(rs types.ResultSet) bool {
	return m.mutate(func() bool {
		final := types.ResultSet{Items: dedupe(rs.Items)}
		if rs.Summary != nil {
			summary := *rs.Summary
			final.Summary = &summary
		}
		m.final = &final
		m.partial = nil
		m.finishLocked(types.StatusCompleted, nil)
		return true
	})
}

// Fail moves the job to failed with err as the reason
func (m *ResultModel) Fail(err error) bool {
	return m.mutate(func() bool {
		m.finishLocked(types.StatusFailed, err)
		return true
	})
}

// Timeout moves the job to timed out
func (m *ResultModel) Timeout(err error) bool {
	return m.mutate(func() bool {
		m.finishLocked(types.StatusTimedOut, err)
		return true
	})
}

func (m *ResultModel) finishLocked(status types.JobStatus, err error) {
	m.job.Status = status
	m.job.Progress = nil
	m.err = err
}

// dedupe keeps one item per tweet id; a later item replaces the earlier one in place
func dedupe(items []types.FilteredItem) []types.FilteredItem {
	out := make([]types.FilteredItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		id := item.Tweet.TweetID
		if id == "" {
			out = append(out, item)
			continue
		}
		if i, ok := index[id]; ok {
			out[i] = item
			continue
		}
		index[id] = len(out)
		out = append(out, item)
	}
	return out
}

func cloneResultSet(rs *types.ResultSet) *types.ResultSet {
	if rs == nil {
		return nil
	}
	out := &types.ResultSet{Items: append([]types.FilteredItem(nil), rs.Items...)}
	if rs.Summary != nil {
		s := *rs.Summary
		out.Summary = &s
	}
	if out.Items == nil {
		out.Items = []types.FilteredItem{}
	}
	return out
}
