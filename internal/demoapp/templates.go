package demoapp

import (
	"html/template"
	"net/http"
)

// Every page renders a #loading indicator that an inline script removes a
// beat after load, then marks <body data-app-ready="true"> and focuses the
// first form field. Clients that wait on the ready attribute never observe a
// half-rendered page.
const baseTemplate = `{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} - FlowCheck Demo</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 28rem; margin: 3rem auto; padding: 0 1rem; }
nav a { margin-right: 1rem; }
label { display: block; margin-top: 0.75rem; }
input { display: block; width: 100%; padding: 0.4rem; margin-top: 0.25rem; }
button { margin-top: 1rem; padding: 0.5rem 1.25rem; }
.error { color: #b00020; margin-top: 0.75rem; }
#loading { color: #666; }
</style>
</head>
<body>
<div id="loading">Loading…</div>
<nav>
{{if .SessionUser}}<form method="post" action="/logout" style="display:inline"><button type="submit">Logout</button></form>
{{else}}<a href="/login">Login</a><a href="/register">Register</a>{{end}}
</nav>
{{template "content" .}}
<script>
window.addEventListener('DOMContentLoaded', function () {
  setTimeout(function () {
    var loading = document.getElementById('loading');
    if (loading) loading.remove();
    document.body.setAttribute('data-app-ready', 'true');
    var first = document.getElementById('username');
    if (first) first.focus();
  }, 25);
});
</script>
</body>
</html>{{end}}`

const homeTemplate = `{{define "content"}}
{{if .SessionUser}}<p>Hello, {{.SessionUser}}</p>
{{else}}<h1>Welcome</h1>
<p>Log in or create an account to get started.</p>{{end}}
{{end}}`

const loginTemplate = `{{define "content"}}
<h1>Sign in to your account</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/login">
<label for="username">Username</label>
<input type="text" id="username" name="username" value="{{.Username}}" required>
<label for="password">Password</label>
<input type="password" id="password" name="password" required>
<button type="submit">Sign in</button>
</form>
<p>Don&#39;t have an account? <a href="/register">Create one</a></p>
{{end}}`

const registerTemplate = `{{define "content"}}
<h1>Create your account</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/register">
<label for="username">Username</label>
<input type="text" id="username" name="username" value="{{.Username}}" required>
<label for="password">Password</label>
<input type="password" id="password" name="password" required>
<label for="confirmPassword">Confirm password</label>
<input type="password" id="confirmPassword" name="confirmPassword" required>
<button type="submit">Register</button>
</form>
<p>Already have an account? <a href="/login">Sign in here</a></p>
{{end}}`

var (
	homeTmpl     = template.Must(template.New("home").Parse(baseTemplate + homeTemplate))
	loginTmpl    = template.Must(template.New("login").Parse(baseTemplate + loginTemplate))
	registerTmpl = template.Must(template.New("register").Parse(baseTemplate + registerTemplate))
)

type homeData struct {
	Title       string
	SessionUser string
}

// formData feeds the login and register pages. Username echoes the submitted
// form value; SessionUser stays empty because both pages redirect when a
// session exists.
type formData struct {
	Title       string
	SessionUser string
	Username    string
	Error       string
}

func renderHome(w http.ResponseWriter, status int, data homeData) {
	data.Title = "Home"
	renderPage(w, status, homeTmpl, data)
}

func renderLogin(w http.ResponseWriter, status int, data formData) {
	data.Title = "Sign in"
	renderPage(w, status, loginTmpl, data)
}

func renderRegister(w http.ResponseWriter, status int, data formData) {
	data.Title = "Register"
	renderPage(w, status, registerTmpl, data)
}

func renderPage(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		log.Error("render page", "template", tmpl.Name(), "error", err)
	}
}
