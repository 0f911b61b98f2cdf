package api

import (
	"errors"
	"net/http"

	"github.com/KevanshGopani/youtube-backend/internal/models"
)

type tweetResponse struct {
	models.Tweet
	Likes int `json:"likes"`
}

func (h *Handler) tweetResponse(tweet models.Tweet) tweetResponse {
	return tweetResponse{Tweet: tweet, Likes: h.Store.CountLikes(models.LikeTargetTweet, tweet.ID)}
}

// TweetsCollection serves /api/tweets: listing (optionally by ?author={id})
// and posting.
func (h *Handler) TweetsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tweets := h.Store.ListTweets(r.URL.Query().Get("author"))
		responses := make([]tweetResponse, 0, len(tweets))
		for _, tweet := range tweets {
			responses = append(responses, h.tweetResponse(tweet))
		}
		writeJSON(w, http.StatusOK, responses)
	case http.MethodPost:
		caller, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var payload struct {
			Content string `json:"content"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tweet, err := h.Store.CreateTweet(caller.ID, payload.Content)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveContentEvent("tweet_created")
		writeJSON(w, http.StatusCreated, h.tweetResponse(tweet))
	default:
		methodNotAllowed(w, "GET, POST", r.Method)
	}
}

// Tweets serves /api/tweets/{id} and /api/tweets/{id}/like.
func (h *Handler) Tweets(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/tweets")
	switch {
	case len(segments) == 1:
		h.tweetByID(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "like":
		h.likeTarget(w, r, models.LikeTargetTweet, segments[0])
	default:
		writeError(w, http.StatusNotFound, errors.New("tweet route not found"))
	}
}

func (h *Handler) tweetByID(w http.ResponseWriter, r *http.Request, tweetID string) {
	switch r.Method {
	case http.MethodGet:
		tweet, ok := h.Store.GetTweet(tweetID)
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("tweet not found"))
			return
		}
		writeJSON(w, http.StatusOK, h.tweetResponse(tweet))
	case http.MethodPatch:
		tweet, ok := h.requireTweetAuthor(w, r, tweetID)
		if !ok {
			return
		}
		var payload struct {
			Content string `json:"content"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateTweet(tweet.ID, payload.Content)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.tweetResponse(updated))
	case http.MethodDelete:
		tweet, ok := h.requireTweetAuthor(w, r, tweetID)
		if !ok {
			return
		}
		if err := h.Store.DeleteTweet(tweet.ID); err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveContentEvent("tweet_deleted")
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w, "GET, PATCH, DELETE", r.Method)
	}
}

func (h *Handler) requireTweetAuthor(w http.ResponseWriter, r *http.Request, tweetID string) (models.Tweet, bool) {
	caller, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.Tweet{}, false
	}
	tweet, found := h.Store.GetTweet(tweetID)
	if !found {
		writeError(w, http.StatusNotFound, errors.New("tweet not found"))
		return models.Tweet{}, false
	}
	if tweet.AuthorID != caller.ID {
		writeError(w, http.StatusForbidden, errors.New("not the tweet author"))
		return models.Tweet{}, false
	}
	return tweet, true
}
