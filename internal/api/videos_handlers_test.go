package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func createTestVideo(t *testing.T, h *Handler, token, title string, published bool) videoResponse {
	t.Helper()
	rr := httptest.NewRecorder()
	h.VideosCollection(rr, authedRequest(http.MethodPost, "/api/videos", token, jsonBody(t, map[string]interface{}{
		"title":     title,
		"videoUrl":  "https://cdn.example.com/" + title + ".mp4",
		"duration":  42.5,
		"published": published,
	})))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create video %s: expected 201, got %d: %s", title, rr.Code, rr.Body.String())
	}
	var video videoResponse
	decodeBody(t, rr, &video)
	return video
}

func TestCreateVideoRequiresAuth(t *testing.T) {
	h := newTestHandler(t)
	rr := httptest.NewRecorder()
	h.VideosCollection(rr, httptest.NewRequest(http.MethodPost, "/api/videos", jsonBody(t, map[string]string{
		"title":    "clip",
		"videoUrl": "https://cdn.example.com/clip.mp4",
	})))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestListVideosHidesUnpublishedFromOthers(t *testing.T) {
	h := newTestHandler(t)
	alice := registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")
	createTestVideo(t, h, session.AccessToken, "public", true)
	createTestVideo(t, h, session.AccessToken, "draft", false)

	rr := httptest.NewRecorder()
	h.VideosCollection(rr, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	var visible []videoResponse
	decodeBody(t, rr, &visible)
	if len(visible) != 1 || visible[0].Title != "public" {
		t.Fatalf("anonymous listing should only show published videos, got %+v", visible)
	}

	// The owner sees drafts in their own catalog.
	rr = httptest.NewRecorder()
	h.VideosCollection(rr, authedRequest(http.MethodGet, "/api/videos?owner="+alice.ID, session.AccessToken, nil))
	var own []videoResponse
	decodeBody(t, rr, &own)
	if len(own) != 2 {
		t.Fatalf("owner listing should include drafts, got %+v", own)
	}
}

func TestGetVideoCountsViews(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")
	video := createTestVideo(t, h, session.AccessToken, "clip", true)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.Videos(rr, httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("get video: expected 200, got %d", rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	h.Videos(rr, httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID, nil))
	var fetched videoResponse
	decodeBody(t, rr, &fetched)
	if fetched.Views != 4 {
		t.Fatalf("expected 4 views, got %d", fetched.Views)
	}
}

func TestVideoUpdateAndDeleteAreOwnerOnly(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	registerTestUser(t, h, "bob")
	aliceSession := loginTestUser(t, h, "alice", "correct horse")
	bobSession := loginTestUser(t, h, "bob", "correct horse")
	video := createTestVideo(t, h, aliceSession.AccessToken, "clip", true)

	rr := httptest.NewRecorder()
	h.Videos(rr, authedRequest(http.MethodPatch, "/api/videos/"+video.ID, bobSession.AccessToken, jsonBody(t, map[string]string{
		"title": "hijacked",
	})))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign patch: expected 403, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Videos(rr, authedRequest(http.MethodPatch, "/api/videos/"+video.ID, aliceSession.AccessToken, jsonBody(t, map[string]string{
		"title": "renamed",
	})))
	if rr.Code != http.StatusOK {
		t.Fatalf("owner patch: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated videoResponse
	decodeBody(t, rr, &updated)
	if updated.Title != "renamed" {
		t.Fatalf("patch not applied: %+v", updated)
	}

	rr = httptest.NewRecorder()
	h.Videos(rr, authedRequest(http.MethodDelete, "/api/videos/"+video.ID, bobSession.AccessToken, nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: expected 403, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Videos(rr, authedRequest(http.MethodDelete, "/api/videos/"+video.ID, aliceSession.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Videos(rr, httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted video: expected 404, got %d", rr.Code)
	}
}

func TestVideoCommentsLifecycle(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	registerTestUser(t, h, "bob")
	aliceSession := loginTestUser(t, h, "alice", "correct horse")
	bobSession := loginTestUser(t, h, "bob", "correct horse")
	video := createTestVideo(t, h, aliceSession.AccessToken, "clip", true)

	rr := httptest.NewRecorder()
	h.Videos(rr, authedRequest(http.MethodPost, "/api/videos/"+video.ID+"/comments", bobSession.AccessToken, jsonBody(t, map[string]string{
		"content": "nice clip",
	})))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create comment: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var comment struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	decodeBody(t, rr, &comment)

	rr = httptest.NewRecorder()
	h.Videos(rr, httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/comments", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list comments: expected 200, got %d", rr.Code)
	}
	var comments []struct {
		ID string `json:"id"`
	}
	decodeBody(t, rr, &comments)
	if len(comments) != 1 || comments[0].ID != comment.ID {
		t.Fatalf("unexpected comment listing: %+v", comments)
	}

	// The video owner may delete another author's comment.
	rr = httptest.NewRecorder()
	h.Comments(rr, authedRequest(http.MethodDelete, "/api/comments/"+comment.ID, aliceSession.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("owner delete comment: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Videos(rr, httptest.NewRequest(http.MethodGet, "/api/videos/missing/comments", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("comments on missing video: expected 404, got %d", rr.Code)
	}
}

func TestCommentDeleteForbiddenForStrangers(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	registerTestUser(t, h, "bob")
	registerTestUser(t, h, "carol")
	aliceSession := loginTestUser(t, h, "alice", "correct horse")
	bobSession := loginTestUser(t, h, "bob", "correct horse")
	carolSession := loginTestUser(t, h, "carol", "correct horse")
	video := createTestVideo(t, h, aliceSession.AccessToken, "clip", true)

	rr := httptest.NewRecorder()
	h.Videos(rr, authedRequest(http.MethodPost, "/api/videos/"+video.ID+"/comments", bobSession.AccessToken, jsonBody(t, map[string]string{
		"content": "first",
	})))
	var comment struct {
		ID string `json:"id"`
	}
	decodeBody(t, rr, &comment)

	rr = httptest.NewRecorder()
	h.Comments(rr, authedRequest(http.MethodDelete, "/api/comments/"+comment.ID, carolSession.AccessToken, nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("stranger delete: expected 403, got %d", rr.Code)
	}

	// The author may always delete their own comment.
	rr = httptest.NewRecorder()
	h.Comments(rr, authedRequest(http.MethodDelete, "/api/comments/"+comment.ID, bobSession.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("author delete: expected 200, got %d", rr.Code)
	}
}

func TestLikeTogglesAndCounts(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	registerTestUser(t, h, "bob")
	aliceSession := loginTestUser(t, h, "alice", "correct horse")
	bobSession := loginTestUser(t, h, "bob", "correct horse")
	video := createTestVideo(t, h, aliceSession.AccessToken, "clip", true)

	like := func(token string) (bool, int) {
		rr := httptest.NewRecorder()
		h.Videos(rr, authedRequest(http.MethodPost, "/api/videos/"+video.ID+"/like", token, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("like: expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp struct {
			Liked bool `json:"liked"`
			Likes int  `json:"likes"`
		}
		decodeBody(t, rr, &resp)
		return resp.Liked, resp.Likes
	}

	if liked, count := like(aliceSession.AccessToken); !liked || count != 1 {
		t.Fatalf("first like: got liked=%v count=%d", liked, count)
	}
	if liked, count := like(bobSession.AccessToken); !liked || count != 2 {
		t.Fatalf("second like: got liked=%v count=%d", liked, count)
	}
	if liked, count := like(aliceSession.AccessToken); liked || count != 1 {
		t.Fatalf("unlike: got liked=%v count=%d", liked, count)
	}

	rr := httptest.NewRecorder()
	h.Videos(rr, authedRequest(http.MethodPost, "/api/videos/missing/like", aliceSession.AccessToken, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("like missing target: expected 404, got %d", rr.Code)
	}
}
