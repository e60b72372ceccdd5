package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/sirupsen/logrus"
)

// @Summary List monitored accounts
// @Tags Accounts
// @Produce json
// @Success 200 {array} types.Account "Accounts"
// @Failure 502 {object} middleware.APIError "Filter service unavailable"
// @Router /accounts [get]
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestID(r)

	accounts, err := h.Upstream.ListAccounts(r.Context())
	if err != nil {
		respondUpstreamError(w, err, requestID)
		return
	}
	if accounts == nil {
		accounts = []types.Account{}
	}

	h.writeJSON(w, http.StatusOK, accounts)
}

// @Summary Add a monitored account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account body types.Account true "Account to add"
// @Success 201 {object} map[string]string "Account added"
// @Failure 400 {object} middleware.APIError "Invalid account"
// @Failure 502 {object} middleware.APIError "Filter service rejected the account"
// @Router /accounts [post]
func (h *Handler) HandleAddAccount(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestID(r)

	var account types.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		middleware.RespondBadRequest(w, fmt.Errorf("invalid request body: %w", err), requestID)
		return
	}
	account.Username = strings.TrimPrefix(strings.TrimSpace(account.Username), "@")
	account.List = strings.TrimSpace(account.List)
	if account.Username == "" {
		middleware.RespondValidationError(w, errors.New("username is required"), requestID)
		return
	}

	message, err := h.Upstream.AddAccount(r.Context(), account)
	if err != nil {
		respondUpstreamError(w, err, requestID)
		return
	}

	if err := h.Cache.InvalidateUser(account.Username); err != nil {
		h.Logger.WithError(err).Warn("Failed to invalidate cached tweets for new account")
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"username":   account.Username,
		"list":       account.List,
	}).Info("Account added")

	if message == "" {
		message = "Account added"
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"message":  message,
		"username": account.Username,
	})
}

// respondUpstreamError maps a proxied call failure: service-side 4xx answers
// are passed on as bad requests, everything else is a gateway error.
func respondUpstreamError(w http.ResponseWriter, err error, requestID string) {
	var httpErr *upstream.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
		if httpErr.StatusCode == http.StatusNotFound {
			middleware.RespondNotFound(w, err, requestID)
			return
		}
		middleware.RespondBadRequest(w, err, requestID)
		return
	}
	middleware.RespondExternalAPIError(w, err, requestID)
}
