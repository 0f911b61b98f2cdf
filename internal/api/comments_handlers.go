package api

import (
	"errors"
	"net/http"

	"github.com/KevanshGopani/youtube-backend/internal/models"
)

// Comments serves /api/comments/{id} (delete) and /api/comments/{id}/like.
// Listing and creation live under the owning video's routes.
func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/comments")
	switch {
	case len(segments) == 1:
		h.deleteCommentRoute(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "like":
		h.likeTarget(w, r, models.LikeTargetComment, segments[0])
	default:
		writeError(w, http.StatusNotFound, errors.New("comment route not found"))
	}
}

// deleteCommentRoute removes a comment. The comment's author and the owner of
// the video it sits on may both delete it.
func (h *Handler) deleteCommentRoute(w http.ResponseWriter, r *http.Request, commentID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete, r.Method)
		return
	}
	caller, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	comment, found := h.Store.GetComment(commentID)
	if !found {
		writeError(w, http.StatusNotFound, errors.New("comment not found"))
		return
	}
	allowed := comment.AuthorID == caller.ID
	if !allowed {
		if video, ok := h.Store.GetVideo(comment.VideoID); ok && video.OwnerID == caller.ID {
			allowed = true
		}
	}
	if !allowed {
		writeError(w, http.StatusForbidden, errors.New("not allowed to delete this comment"))
		return
	}
	if err := h.Store.DeleteComment(commentID); err != nil {
		writeStorageError(w, err)
		return
	}
	h.recorder().ObserveContentEvent("comment_deleted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
