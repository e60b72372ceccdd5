/*
Package handlers provides HTTP handlers with dependency injection support.

This package defines the Handler struct that contains all service dependencies,
eliminating global variables and enabling better testability and separation of concerns.
*/
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Nexora-Open-Source/tweet-filter/monitor"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/sirupsen/logrus"
)

// FilterService runs filter operations; one at a time
type FilterService interface {
	Start(req types.FilterRequest) (*monitor.ResultModel, error)
	Current() *monitor.ResultModel
	TransportName() string
}

// UpstreamAPI is the part of the filter service proxied by the local API
type UpstreamAPI interface {
	ListAccounts(ctx context.Context) ([]types.Account, error)
	AddAccount(ctx context.Context, account types.Account) (string, error)
	Tweets(ctx context.Context, list string, limit int) ([]types.Tweet, error)
	UserTweets(ctx context.Context, username string, limit int) ([]types.Tweet, error)
}

// TweetCache defines the cache operations used for tweet listings
type TweetCache interface {
	GetTweets(key string) ([]types.Tweet, bool)
	SetTweets(key string, tweets []types.Tweet) error
	InvalidateUser(username string) error
}

// Handler contains all service dependencies for HTTP handlers
type Handler struct {
	Filters  FilterService
	Upstream UpstreamAPI
	Cache    TweetCache
	Logger   *logrus.Logger
}

// NewHandler creates a new handler instance with injected dependencies
func NewHandler(filters FilterService, upstream UpstreamAPI, cache TweetCache, logger *logrus.Logger) *Handler {
	return &Handler{
		Filters:  filters,
		Upstream: upstream,
		Cache:    cache,
		Logger:   logger,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.WithError(err).WithField("status", status).Error("Failed to encode response")
	}
}
