package demoapp

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/flowcheck/internal/ratelimit"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestApp(t *testing.T, limiter *ratelimit.Limiter) (*httptest.Server, *http.Client) {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "demo.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	app := New(Options{
		Store:        store,
		Hasher:       FakeInsecureHasher{},
		LoginLimiter: limiter,
		SessionTTL:   time.Hour,
	})
	server := httptest.NewServer(app.Handler())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}
	return server, client
}

func postForm(t *testing.T, client *http.Client, serverURL, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := client.PostForm(serverURL+path, form)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func getPage(t *testing.T, client *http.Client, serverURL, path string) string {
	t.Helper()
	resp, err := client.Get(serverURL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return string(body)
}

func registerForm(username, password, confirm string) url.Values {
	return url.Values{
		"username":        {username},
		"password":        {password},
		"confirmPassword": {confirm},
	}
}

// ============================================================================
// Page Rendering
// ============================================================================

func TestHomePageLoggedOut(t *testing.T) {
	server, client := newTestApp(t, nil)

	body := getPage(t, client, server.URL, "/")
	require.Contains(t, body, `id="loading"`)
	require.Contains(t, body, `href="/login"`)
	require.Contains(t, body, `href="/register"`)
	require.NotContains(t, body, "Logout")
}

func TestLoginPageRendersForm(t *testing.T) {
	server, client := newTestApp(t, nil)

	body := getPage(t, client, server.URL, "/login")
	require.Contains(t, body, "Sign in to your account")
	require.Contains(t, body, `id="username"`)
	require.Contains(t, body, `id="password"`)
	require.Contains(t, body, "Don&#39;t have an account?")
}

func TestRegisterPageRendersForm(t *testing.T) {
	server, client := newTestApp(t, nil)

	body := getPage(t, client, server.URL, "/register")
	require.Contains(t, body, "Create your account")
	require.Contains(t, body, `id="confirmPassword"`)
	require.Contains(t, body, "Already have an account?")
}

// ============================================================================
// Registration
// ============================================================================

func TestRegisterSuccessLogsIn(t *testing.T) {
	server, client := newTestApp(t, nil)

	resp, body := postForm(t, client, server.URL, "/register", registerForm("alice", "secret123", "secret123"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, server.URL+"/", resp.Request.URL.String(), "should land on home after redirect")
	require.Contains(t, body, "Hello, alice")
	require.Contains(t, body, "Logout")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	server, client := newTestApp(t, nil)

	resp, body := postForm(t, client, server.URL, "/register", registerForm("bob", "secret123", "different"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "Passwords do not match")
	require.Contains(t, body, `value="bob"`, "username should survive the round trip")
}

func TestRegisterRetryAfterMismatch(t *testing.T) {
	server, client := newTestApp(t, nil)

	resp, _ := postForm(t, client, server.URL, "/register", registerForm("fran", "secret123", "different"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The rejected attempt must not have claimed the username.
	resp, body := postForm(t, client, server.URL, "/register", registerForm("fran", "secret123", "secret123"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Hello, fran")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	server, client := newTestApp(t, nil)

	resp, _ := postForm(t, client, server.URL, "/register", registerForm("carol", "secret123", "secret123"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Second attempt from a fresh client must not clobber the account.
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	fresh := &http.Client{Jar: jar}
	resp, body := postForm(t, fresh, server.URL, "/register", registerForm("carol", "otherpass", "otherpass"))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, body, "username already taken")

	// Original password still works.
	resp, body = postForm(t, fresh, server.URL, "/login", url.Values{
		"username": {"carol"}, "password": {"secret123"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Hello, carol")
}

func TestRegisterMissingFields(t *testing.T) {
	server, client := newTestApp(t, nil)

	resp, body := postForm(t, client, server.URL, "/register", registerForm("", "", ""))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "all fields are required")
}

// ============================================================================
// Login / Logout
// ============================================================================

func TestLoginWrongPassword(t *testing.T) {
	server, client := newTestApp(t, nil)

	postForm(t, client, server.URL, "/register", registerForm("dave", "secret123", "secret123"))

	jar, _ := cookiejar.New(nil)
	fresh := &http.Client{Jar: jar}
	resp, body := postForm(t, fresh, server.URL, "/login", url.Values{
		"username": {"dave"}, "password": {"wrong"},
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, "invalid username or password")
}

func TestLoginUnknownUserSameMessage(t *testing.T) {
	server, client := newTestApp(t, nil)

	resp, body := postForm(t, client, server.URL, "/login", url.Values{
		"username": {"nobody"}, "password": {"whatever"},
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, "invalid username or password")
}

func TestLogoutEndsSession(t *testing.T) {
	server, client := newTestApp(t, nil)

	_, body := postForm(t, client, server.URL, "/register", registerForm("erin", "secret123", "secret123"))
	require.Contains(t, body, "Hello, erin")

	resp, body := postForm(t, client, server.URL, "/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, body, "Hello, erin")
	require.Contains(t, body, `href="/login"`)

	// The old session is gone server-side, not just client-side.
	body = getPage(t, client, server.URL, "/")
	require.NotContains(t, body, "Hello, erin")
}

func TestLoginThrottled(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 1, Burst: 2, CleanupInterval: time.Hour})
	t.Cleanup(limiter.Stop)
	server, client := newTestApp(t, limiter)

	form := url.Values{"username": {"nobody"}, "password": {"bad"}}
	var lastStatus int
	var lastBody string
	for i := 0; i < 3; i++ {
		resp, body := postForm(t, client, server.URL, "/login", form)
		lastStatus, lastBody = resp.StatusCode, body
	}
	require.Equal(t, http.StatusTooManyRequests, lastStatus)
	require.Contains(t, lastBody, "too many attempts")
}

// ============================================================================
// Session Cookies
// ============================================================================

func TestSessionCookieAttributes(t *testing.T) {
	server, _ := newTestApp(t, nil)

	// No redirect following so the Set-Cookie on the POST is observable.
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.PostForm(server.URL+"/register", registerForm("frank", "secret123", "secret123"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	require.True(t, session.HttpOnly)
	require.NotEmpty(t, session.Value)
	require.False(t, strings.Contains(session.Value, " "))
}
