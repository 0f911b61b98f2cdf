package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/KevanshGopani/youtube-backend/internal/models"
	"github.com/KevanshGopani/youtube-backend/internal/storage"
)

type videoResponse struct {
	models.Video
	Likes int `json:"likes"`
}

func (h *Handler) videoResponse(video models.Video) videoResponse {
	return videoResponse{Video: video, Likes: h.Store.CountLikes(models.LikeTargetVideo, video.ID)}
}

// VideosCollection serves /api/videos: published-video listing and uploads.
// Owners listing their own catalog with ?owner={id} see unpublished entries
// too when authenticated as that owner.
func (h *Handler) VideosCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listVideos(w, r)
	case http.MethodPost:
		h.createVideo(w, r)
	default:
		methodNotAllowed(w, "GET, POST", r.Method)
	}
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner")
	includeUnpublished := false
	if ownerID != "" {
		if caller, ok := UserFromContext(r.Context()); ok && caller.ID == ownerID {
			includeUnpublished = true
		} else if caller, err := h.AuthenticateRequest(r); err == nil && caller.ID == ownerID {
			includeUnpublished = true
		}
	}
	videos := h.Store.ListVideos(ownerID, includeUnpublished)
	responses := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		responses = append(responses, h.videoResponse(video))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *Handler) createVideo(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		Title        string  `json:"title"`
		Description  string  `json:"description"`
		VideoURL     string  `json:"videoUrl"`
		ThumbnailURL string  `json:"thumbnailUrl"`
		Duration     float64 `json:"duration"`
		Published    *bool   `json:"published"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	published := true
	if payload.Published != nil {
		published = *payload.Published
	}
	video, err := h.Store.CreateVideo(storage.CreateVideoParams{
		OwnerID:      caller.ID,
		Title:        payload.Title,
		Description:  payload.Description,
		VideoURL:     payload.VideoURL,
		ThumbnailURL: payload.ThumbnailURL,
		Duration:     payload.Duration,
		Published:    published,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	h.recorder().ObserveContentEvent("video_created")
	writeJSON(w, http.StatusCreated, h.videoResponse(video))
}

// Videos serves /api/videos/{id}, /api/videos/{id}/comments, and
// /api/videos/{id}/like.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/videos")
	switch {
	case len(segments) == 1:
		h.videoByID(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "comments":
		h.videoComments(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "like":
		h.likeTarget(w, r, models.LikeTargetVideo, segments[0])
	default:
		writeError(w, http.StatusNotFound, errors.New("video route not found"))
	}
}

func (h *Handler) videoByID(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		h.getVideo(w, r, videoID)
	case http.MethodPatch:
		h.updateVideo(w, r, videoID)
	case http.MethodDelete:
		h.deleteVideo(w, r, videoID)
	default:
		methodNotAllowed(w, "GET, PATCH, DELETE", r.Method)
	}
}

// requireVideoOwner loads the video and verifies the caller owns it.
func (h *Handler) requireVideoOwner(w http.ResponseWriter, r *http.Request, videoID string) (models.Video, bool) {
	caller, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.Video{}, false
	}
	video, found := h.Store.GetVideo(videoID)
	if !found {
		writeError(w, http.StatusNotFound, errors.New("video not found"))
		return models.Video{}, false
	}
	if video.OwnerID != caller.ID {
		writeError(w, http.StatusForbidden, errors.New("not the video owner"))
		return models.Video{}, false
	}
	return video, true
}

func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	video, ok := h.Store.GetVideo(videoID)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("video not found"))
		return
	}
	if !video.Published {
		caller, err := h.AuthenticateRequest(r)
		if err != nil || caller.ID != video.OwnerID {
			writeError(w, http.StatusNotFound, errors.New("video not found"))
			return
		}
		writeJSON(w, http.StatusOK, h.videoResponse(video))
		return
	}
	updated, err := h.Store.IncrementVideoViews(videoID)
	if err == nil {
		video = updated
	}
	writeJSON(w, http.StatusOK, h.videoResponse(video))
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	if _, ok := h.requireVideoOwner(w, r, videoID); !ok {
		return
	}
	var payload struct {
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		ThumbnailURL *string `json:"thumbnailUrl"`
		Published    *bool   `json:"published"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	video, err := h.Store.UpdateVideo(videoID, storage.VideoUpdate{
		Title:        payload.Title,
		Description:  payload.Description,
		ThumbnailURL: payload.ThumbnailURL,
		Published:    payload.Published,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.videoResponse(video))
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	if _, ok := h.requireVideoOwner(w, r, videoID); !ok {
		return
	}
	if err := h.Store.DeleteVideo(videoID); err != nil {
		writeStorageError(w, err)
		return
	}
	h.recorder().ObserveContentEvent("video_deleted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
				return
			}
			limit = parsed
		}
		comments, err := h.Store.ListComments(videoID, limit)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comments)
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
		comment, err := h.Store.CreateComment(videoID, caller.ID, payload.Content)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveContentEvent("comment_created")
		writeJSON(w, http.StatusCreated, comment)
	default:
		methodNotAllowed(w, "GET, POST", r.Method)
	}
}

// likeTarget toggles the caller's like on a video, comment, or tweet.
func (h *Handler) likeTarget(w http.ResponseWriter, r *http.Request, target models.LikeTarget, targetID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost, r.Method)
		return
	}
	caller, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	liked, count, err := h.Store.ToggleLike(caller.ID, target, targetID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"liked": liked, "likes": count})
}
