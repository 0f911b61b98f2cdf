package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func findCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, map[string]string{
		"username": "ALICE",
		"email":    "other@example.com",
		"password": "correct horse",
	}))
	h.Register(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, map[string]string{
		"username": "bob",
		"email":    "Alice@example.com",
		"password": "correct horse",
	}))
	h.Register(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h := newTestHandler(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "short",
	}))
	h.Register(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
		"identifier": "alice",
		"password":   "correct horse",
	}))
	h.Login(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp authResponse
	decodeBody(t, rr, &resp)
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens in response")
	}
	if resp.AccessToken == resp.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	for _, name := range []string{accessCookieName, refreshCookieName} {
		cookie := findCookie(t, rr, name)
		if cookie == nil {
			t.Fatalf("missing cookie %s", name)
		}
		if !cookie.HttpOnly {
			t.Errorf("cookie %s should be HttpOnly", name)
		}
		if cookie.Path != "/" {
			t.Errorf("cookie %s path = %q, want /", name, cookie.Path)
		}
		if cookie.SameSite != http.SameSiteStrictMode {
			t.Errorf("cookie %s SameSite = %v, want strict", name, cookie.SameSite)
		}
		if cookie.Secure {
			t.Errorf("cookie %s should not be Secure over plain HTTP", name)
		}
		if cookie.MaxAge <= 0 {
			t.Errorf("cookie %s MaxAge = %d, want positive", name, cookie.MaxAge)
		}
	}
}

func TestLoginMarksCookiesSecureBehindTLSProxy(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
		"identifier": "alice",
		"password":   "correct horse",
	}))
	req.Header.Set("X-Forwarded-Proto", "https")
	h.Login(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cookie := findCookie(t, rr, accessCookieName)
	if cookie == nil || !cookie.Secure {
		t.Fatal("expected Secure cookie behind a TLS-terminating proxy")
	}
}

func TestLoginFailureTaxonomy(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")

	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
		"identifier": "nobody",
		"password":   "correct horse",
	})))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown identifier: expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
		"identifier": "alice",
		"password":   "wrong password",
	})))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", rr.Code)
	}
	if counts := h.Metrics.AuthEventCounts(); counts["login_failure"] != 2 {
		t.Fatalf("expected 2 login_failure events, got %d", counts["login_failure"])
	}
}

func TestSessionEndpointRequiresAccessToken(t *testing.T) {
	h := newTestHandler(t)
	user := registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")

	rr := httptest.NewRecorder()
	h.Session(rr, authedRequest(http.MethodGet, "/api/auth/session", session.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var profile userResponse
	decodeBody(t, rr, &profile)
	if profile.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, profile.ID)
	}

	rr = httptest.NewRecorder()
	h.Session(rr, authedRequest(http.MethodGet, "/api/auth/session", "", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rr.Code)
	}

	// A refresh token must not open the access-protected surface.
	rr = httptest.NewRecorder()
	h.Session(rr, authedRequest(http.MethodGet, "/api/auth/session", session.RefreshToken, nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("refresh-as-access: expected 401, got %d", rr.Code)
	}
}

func TestSessionReadsAccessTokenFromCookie(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: session.AccessToken})
	rr := httptest.NewRecorder()
	h.Session(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 via cookie, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRefreshRotatesAndRejectsOldToken(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: session.RefreshToken})
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rotated authResponse
	decodeBody(t, rr, &rotated)
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatal("refresh must rotate the refresh token")
	}
	if rotated.AccessToken == session.AccessToken {
		t.Fatal("refresh must mint a new access token")
	}

	// The displaced token is now useless.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: session.RefreshToken})
	rr = httptest.NewRecorder()
	h.Refresh(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reused token: expected 401, got %d", rr.Code)
	}

	counts := h.Metrics.AuthEventCounts()
	if counts["refresh_rotated"] != 1 {
		t.Fatalf("expected 1 refresh_rotated event, got %d", counts["refresh_rotated"])
	}
	if counts["refresh_reuse_detected"] != 1 {
		t.Fatalf("expected 1 refresh_reuse_detected event, got %d", counts["refresh_reuse_detected"])
	}

	// The rotated token keeps working.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: rotated.RefreshToken})
	rr = httptest.NewRecorder()
	h.Refresh(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("rotated token refresh: expected 200, got %d", rr.Code)
	}
}

func TestRefreshAcceptsBodyToken(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")

	rr := httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", jsonBody(t, map[string]string{
		"refreshToken": session.RefreshToken,
	})))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")

	cases := map[string]string{
		"empty":            "",
		"garbage":          "not-a-token",
		"access-as-refresh": session.AccessToken,
	}
	for name, token := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: token})
		}
		rr := httptest.NewRecorder()
		h.Refresh(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rr.Code)
		}
	}
}

func TestLoginDisplacesPreviousSession(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	first := loginTestUser(t, h, "alice", "correct horse")
	second := loginTestUser(t, h, "alice", "correct horse")

	// The first session's refresh token was displaced by the second login.
	rr := httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", jsonBody(t, map[string]string{
		"refreshToken": first.RefreshToken,
	})))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("displaced token: expected 401, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", jsonBody(t, map[string]string{
		"refreshToken": second.RefreshToken,
	})))
	if rr.Code != http.StatusOK {
		t.Fatalf("current token: expected 200, got %d", rr.Code)
	}
}

func TestLogoutClearsSessionAndCookies(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")

	rr := httptest.NewRecorder()
	h.Logout(rr, authedRequest(http.MethodPost, "/api/auth/logout", session.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	for _, name := range []string{accessCookieName, refreshCookieName} {
		cookie := findCookie(t, rr, name)
		if cookie == nil {
			t.Fatalf("expected expiring cookie %s", name)
		}
		if cookie.Value != "" || cookie.MaxAge != -1 {
			t.Errorf("cookie %s not cleared: value=%q maxage=%d", name, cookie.Value, cookie.MaxAge)
		}
	}

	// The refresh token stops working once the slot is cleared.
	rr = httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", jsonBody(t, map[string]string{
		"refreshToken": session.RefreshToken,
	})))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout refresh: expected 401, got %d", rr.Code)
	}

	// Logging out again is not an error.
	rr = httptest.NewRecorder()
	h.Logout(rr, authedRequest(http.MethodPost, "/api/auth/logout", session.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("second logout: expected 200, got %d", rr.Code)
	}
}

func TestChangePasswordRevokesSession(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")

	rr := httptest.NewRecorder()
	h.ChangePassword(rr, authedRequest(http.MethodPost, "/api/auth/password", session.AccessToken, jsonBody(t, map[string]string{
		"oldPassword": "wrong password",
		"newPassword": "battery staple",
	})))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong old password: expected 401, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ChangePassword(rr, authedRequest(http.MethodPost, "/api/auth/password", session.AccessToken, jsonBody(t, map[string]string{
		"oldPassword": "correct horse",
		"newPassword": "short",
	})))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("short new password: expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ChangePassword(rr, authedRequest(http.MethodPost, "/api/auth/password", session.AccessToken, jsonBody(t, map[string]string{
		"oldPassword": "correct horse",
		"newPassword": "battery staple",
	})))
	if rr.Code != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// The old session's refresh token is revoked.
	rr = httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", jsonBody(t, map[string]string{
		"refreshToken": session.RefreshToken,
	})))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("post-change refresh: expected 401, got %d", rr.Code)
	}

	// Old password no longer logs in; the new one does.
	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
		"identifier": "alice",
		"password":   "correct horse",
	})))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("old password login: expected 401, got %d", rr.Code)
	}
	loginTestUser(t, h, "alice", "battery staple")
}

func TestAuthEndpointsRejectWrongMethods(t *testing.T) {
	h := newTestHandler(t)
	endpoints := map[string]http.HandlerFunc{
		"/api/auth/register": h.Register,
		"/api/auth/login":    h.Login,
		"/api/auth/refresh":  h.Refresh,
		"/api/auth/logout":   h.Logout,
		"/api/auth/password": h.ChangePassword,
	}
	for path, handler := range endpoints {
		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest(http.MethodPut, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", path, rr.Code)
		}
		if allow := rr.Header().Get("Allow"); allow == "" {
			t.Errorf("%s: expected Allow header", path)
		}
	}
}
