package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/sirupsen/logrus"
)

const (
	defaultWait = 30 * time.Second
	maxWait     = 60 * time.Second
)

var errNoOperation = errors.New("no filter operation has been started")

// @Summary Start a filter operation
// @Description Submits a question over a list or a set of users to the filter service and starts monitoring it. Any running operation is abandoned.
// @Tags Filter
// @Accept json
// @Produce json
// @Param request body types.FilterRequest true "Question and scope"
// @Success 202 {object} monitor.Snapshot "Operation started"
// @Failure 400 {object} middleware.APIError "Invalid request"
// @Router /filter [post]
func (h *Handler) HandleStartFilter(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestID(r)

	var req types.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondBadRequest(w, fmt.Errorf("invalid request body: %w", err), requestID)
		return
	}

	model, err := h.Filters.Start(req)
	if err != nil {
		middleware.RespondMonitorError(w, err, requestID)
		return
	}

	snap := model.Snapshot()
	h.Logger.WithFields(logrus.Fields{
		"request_id":   requestID,
		"operation_id": snap.OperationID,
		"transport":    snap.Transport,
	}).Info("Filter operation started")

	h.writeJSON(w, http.StatusAccepted, snap)
}

// @Summary Get the current filter operation
// @Description Returns the latest snapshot. With since, waits until the snapshot version passes it, the operation ends or wait elapses.
// @Tags Filter
// @Produce json
// @Param since query int false "Return once the version is greater than this"
// @Param wait query string false "Maximum wait as a Go duration (default 30s, max 60s)"
// @Success 200 {object} monitor.Snapshot "Current snapshot"
// @Failure 400 {object} middleware.APIError "Invalid parameters"
// @Failure 404 {object} middleware.APIError "No operation started"
// @Router /filter [get]
func (h *Handler) HandleGetFilter(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestID(r)

	model := h.Filters.Current()
	if model == nil {
		middleware.RespondNotFound(w, errNoOperation, requestID)
		return
	}

	query := r.URL.Query()
	rawSince := query.Get("since")
	if rawSince == "" {
		h.writeJSON(w, http.StatusOK, model.Snapshot())
		return
	}

	since, err := strconv.ParseUint(rawSince, 10, 64)
	if err != nil {
		middleware.RespondBadRequest(w, fmt.Errorf("invalid since parameter: %w", err), requestID)
		return
	}

	wait := defaultWait
	if raw := query.Get("wait"); raw != "" {
		wait, err = time.ParseDuration(raw)
		if err != nil || wait < 0 {
			middleware.RespondBadRequest(w, fmt.Errorf("invalid wait parameter %q", raw), requestID)
			return
		}
	}
	if wait > maxWait {
		wait = maxWait
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		// grab the channel first so a change between the two calls is not missed
		changed := model.Changed()
		snap := model.Snapshot()
		if snap.Version > since || snap.Job.Status.IsTerminal() {
			h.writeJSON(w, http.StatusOK, snap)
			return
		}

		select {
		case <-changed:
		case <-timer.C:
			h.writeJSON(w, http.StatusOK, model.Snapshot())
			return
		case <-r.Context().Done():
			return
		}
	}
}
