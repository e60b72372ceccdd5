package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Nexora-Open-Source/tweet-filter/cache"
	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/utils"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	defaultTweetsLimit     = 100
	defaultUserTweetsLimit = 50
	maxTweetsLimit         = 1000
)

// TweetsResponse is returned by the tweet listing endpoints
type TweetsResponse struct {
	Tweets []types.Tweet `json:"tweets"`
	Count  int           `json:"count"`
	Cached bool          `json:"cached"`
}

// @Summary List recent tweets
// @Tags Tweets
// @Produce json
// @Param limit query int false "Number of tweets (default: 100, max: 1000)"
// @Param list query string false "Restrict to a named list"
// @Success 200 {object} TweetsResponse "Tweets"
// @Failure 502 {object} middleware.APIError "Filter service unavailable"
// @Router /tweets [get]
func (h *Handler) HandleGetTweets(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestID(r)
	limit := utils.ParseLimit(r.URL.Query().Get("limit"), defaultTweetsLimit, maxTweetsLimit)
	list := strings.TrimSpace(r.URL.Query().Get("list"))

	key := cache.ListKey(list, limit)
	if tweets, found := h.Cache.GetTweets(key); found {
		h.respondTweets(w, tweets, true)
		return
	}

	tweets, err := h.Upstream.Tweets(r.Context(), list, limit)
	if err != nil {
		respondUpstreamError(w, err, requestID)
		return
	}
	if err := h.Cache.SetTweets(key, tweets); err != nil {
		h.Logger.WithError(err).Warn("Failed to cache tweets")
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"list":       list,
		"limit":      limit,
		"count":      len(tweets),
	}).Debug("Fetched tweets from filter service")

	h.respondTweets(w, tweets, false)
}

// @Summary List recent tweets of one account
// @Tags Tweets
// @Produce json
// @Param username path string true "Account username"
// @Param limit query int false "Number of tweets (default: 50, max: 1000)"
// @Success 200 {object} TweetsResponse "Tweets"
// @Failure 400 {object} middleware.APIError "Missing username"
// @Failure 502 {object} middleware.APIError "Filter service unavailable"
// @Router /tweets/{username} [get]
func (h *Handler) HandleGetUserTweets(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestID(r)
	username := strings.TrimPrefix(strings.TrimSpace(mux.Vars(r)["username"]), "@")
	if username == "" {
		middleware.RespondBadRequest(w, errors.New("username is required"), requestID)
		return
	}
	limit := utils.ParseLimit(r.URL.Query().Get("limit"), defaultUserTweetsLimit, maxTweetsLimit)

	key := cache.UserKey(username, limit)
	if tweets, found := h.Cache.GetTweets(key); found {
		h.respondTweets(w, tweets, true)
		return
	}

	tweets, err := h.Upstream.UserTweets(r.Context(), username, limit)
	if err != nil {
		respondUpstreamError(w, err, requestID)
		return
	}
	if err := h.Cache.SetTweets(key, tweets); err != nil {
		h.Logger.WithError(err).Warn("Failed to cache tweets")
	}

	h.respondTweets(w, tweets, false)
}

func (h *Handler) respondTweets(w http.ResponseWriter, tweets []types.Tweet, cached bool) {
	if tweets == nil {
		tweets = []types.Tweet{}
	}
	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	h.writeJSON(w, http.StatusOK, TweetsResponse{Tweets: tweets, Count: len(tweets), Cached: cached})
}
