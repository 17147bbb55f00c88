package demoapp

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kuitang/flowcheck/internal/obs"
	"github.com/kuitang/flowcheck/internal/ratelimit"
)

var log = obs.Pkg("demoapp")

// SessionCookieName is the cookie carrying the opaque session ID.
const SessionCookieName = "flowcheck_demo_session"

// DefaultSessionTTL is how long a login session stays valid.
const DefaultSessionTTL = 24 * time.Hour

// Options configures the app. Store is required; the rest default.
type Options struct {
	Store        *Store
	Hasher       PasswordHasher
	LoginLimiter *ratelimit.Limiter
	SessionTTL   time.Duration
}

// App serves the demo authentication flows.
type App struct {
	store      *Store
	hasher     PasswordHasher
	limiter    *ratelimit.Limiter
	sessionTTL time.Duration
}

// New creates the app. Pass a nil LoginLimiter to disable login throttling.
func New(opts Options) *App {
	a := &App{
		store:      opts.Store,
		hasher:     opts.Hasher,
		limiter:    opts.LoginLimiter,
		sessionTTL: opts.SessionTTL,
	}
	if a.hasher == nil {
		a.hasher = Argon2idHasher{}
	}
	if a.sessionTTL <= 0 {
		a.sessionTTL = DefaultSessionTTL
	}
	return a
}

// Handler returns the app's routes.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleHome)
	mux.HandleFunc("GET /login", a.handleLoginPage)
	mux.HandleFunc("GET /register", a.handleRegisterPage)
	mux.HandleFunc("POST /login", a.handleLogin)
	mux.HandleFunc("POST /register", a.handleRegister)
	mux.HandleFunc("POST /logout", a.handleLogout)
	return mux
}

// SetCookie sets the session cookie on the response. Secure is off because
// the app serves plain HTTP to a local browser under test.
func SetCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(DefaultSessionTTL / time.Second),
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// currentUser resolves the session cookie to a username, or "" when the
// request carries no live session.
func (a *App) currentUser(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	username, err := a.store.GetSessionUser(r.Context(), cookie.Value)
	if err != nil {
		return ""
	}
	return username
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	username := a.currentUser(r)
	renderHome(w, http.StatusOK, homeData{SessionUser: username})
}

func (a *App) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if a.currentUser(r) != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderLogin(w, http.StatusOK, formData{})
}

func (a *App) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if a.currentUser(r) != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderRegister(w, http.StatusOK, formData{})
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirmPassword")

	if username == "" || password == "" || confirm == "" {
		renderRegister(w, http.StatusBadRequest, formData{
			Username: username,
			Error:    "all fields are required",
		})
		return
	}
	if password != confirm {
		renderRegister(w, http.StatusBadRequest, formData{
			Username: username,
			Error:    "Passwords do not match",
		})
		return
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		log.Error("hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := a.store.CreateUser(r.Context(), username, hash); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			renderRegister(w, http.StatusConflict, formData{
				Username: username,
				Error:    "username already taken",
			})
			return
		}
		log.Error("create user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	a.startSession(w, r, username)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if a.limiter != nil && !a.limiter.Allow(clientIP(r)) {
		log.Warn("login throttled", "remote", r.RemoteAddr)
		renderLogin(w, http.StatusTooManyRequests, formData{
			Username: username,
			Error:    "too many attempts, try again later",
		})
		return
	}

	hash, err := a.store.GetPasswordHash(r.Context(), username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		log.Error("look up user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	ok := false
	if err == nil {
		ok, err = a.hasher.Verify(password, hash)
		if err != nil {
			log.Error("verify password", "username", username, "error", err)
		}
	}
	if !ok {
		renderLogin(w, http.StatusUnauthorized, formData{
			Username: username,
			Error:    "invalid username or password",
		})
		return
	}

	a.startSession(w, r, username)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := a.store.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.Error("delete session", "error", err)
		}
	}
	ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) startSession(w http.ResponseWriter, r *http.Request, username string) {
	sessionID, err := a.store.CreateSession(r.Context(), username, a.sessionTTL)
	if err != nil {
		log.Error("create session", "username", username, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	SetCookie(w, sessionID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
