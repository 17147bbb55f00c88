// Package authsuite declares the built-in verification chains for
// registration, login, and logout flows. The chains are data: the flow
// runner executes them against whatever target the CLI points at, as long as
// the target renders the expected account surface.
package authsuite

import (
	"github.com/kuitang/flowcheck/internal/fixture"
	"github.com/kuitang/flowcheck/internal/flow"
)

// Selectors for the account surface under verification.
const (
	usernameField = "#username"
	passwordField = "#password"
	confirmField  = "#confirmPassword"
)

var (
	loginLink      = flow.Role("link", "Login")
	registerLink   = flow.Role("link", "Register")
	registerButton = flow.Role("button", "Register")
	signInButton   = flow.Role("button", "Sign in")
	logoutButton   = flow.Role("button", "Logout")
)

// Chains returns the full suite for one fresh identity. Credentials are
// threaded explicitly so every run exercises an account that has never
// existed on the target before.
func Chains(creds fixture.Credentials) []flow.Chain {
	return []flow.Chain{
		Landing(),
		Lifecycle(creds),
		RegistrationValidation(fixture.NewCredentials("flowv")),
	}
}

// Landing verifies the logged-out entry point offers both ways in. It needs
// no fixture and no server-side state.
func Landing() flow.Chain {
	return flow.Chain{
		Name: "landing",
		Scenarios: []flow.Scenario{
			{
				Name: "landing page offers login and register",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/"},
					flow.Expect{Cond: flow.Visible(loginLink)},
					flow.Expect{Cond: flow.Visible(registerLink)},
				},
			},
		},
	}
}

// Lifecycle is the ordered account lifecycle: the register scenario creates
// the server-side account every later scenario depends on, so the scenarios
// must run serially and a failure blocks the rest.
func Lifecycle(creds fixture.Credentials) flow.Chain {
	greeting := "Hello, " + creds.Username
	return flow.Chain{
		Name: "auth-lifecycle",
		Scenarios: []flow.Scenario{
			{
				Name: "register new account",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/register"},
					flow.Expect{Cond: flow.RoleVisible("heading", "Create your account")},
					flow.Expect{Cond: flow.Focused(usernameField)},
					flow.Fill{Selector: usernameField, Value: creds.Username},
					flow.Fill{Selector: passwordField, Value: creds.Password},
					flow.Fill{Selector: confirmField, Value: creds.Password},
					flow.Click{Selector: registerButton},
					flow.ExpectURL{Path: "/"},
					flow.Expect{Cond: flow.TextVisible(greeting)},
					flow.Expect{Cond: flow.Visible(logoutButton)},
				},
			},
			{
				Name: "reject duplicate username",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/register"},
					flow.Fill{Selector: usernameField, Value: creds.Username},
					flow.Fill{Selector: passwordField, Value: "unrelated-pass-1"},
					flow.Fill{Selector: confirmField, Value: "unrelated-pass-1"},
					flow.Click{Selector: registerButton},
					flow.ExpectValidation{Text: "username already taken"},
					flow.ExpectURL{Path: "/register"},
				},
			},
			{
				Name: "login with valid credentials",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/login"},
					flow.Expect{Cond: flow.RoleVisible("heading", "Sign in to your account")},
					flow.Expect{Cond: flow.Focused(usernameField)},
					flow.Fill{Selector: usernameField, Value: creds.Username},
					flow.Fill{Selector: passwordField, Value: creds.Password},
					flow.Click{Selector: signInButton},
					flow.ExpectURL{Path: "/"},
					flow.Expect{Cond: flow.TextVisible(greeting)},
				},
			},
			{
				Name: "reject wrong password",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/login"},
					flow.Fill{Selector: usernameField, Value: creds.Username},
					flow.Fill{Selector: passwordField, Value: "wrong-" + creds.Password},
					flow.Click{Selector: signInButton},
					flow.ExpectValidation{Text: "invalid username or password"},
					flow.ExpectURL{Path: "/login"},
					flow.Expect{Cond: flow.TextAbsent(greeting)},
					flow.Expect{Cond: flow.Hidden(logoutButton)},
				},
			},
			{
				Name: "logout ends session",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/login"},
					flow.Fill{Selector: usernameField, Value: creds.Username},
					flow.Fill{Selector: passwordField, Value: creds.Password},
					flow.Click{Selector: signInButton},
					flow.Expect{Cond: flow.TextVisible(greeting)},
					flow.Click{Selector: logoutButton},
					flow.ExpectURL{Path: "/"},
					flow.Expect{Cond: flow.TextAbsent(greeting)},
					flow.Expect{Cond: flow.Visible(loginLink)},
				},
			},
		},
	}
}

// RegistrationValidation covers client-observable registration failures that
// need no pre-existing account. It gets its own credentials so it can run
// independently of the lifecycle chain.
func RegistrationValidation(creds fixture.Credentials) flow.Chain {
	return flow.Chain{
		Name: "registration-validation",
		Scenarios: []flow.Scenario{
			{
				Name: "reject mismatched passwords",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/register"},
					flow.Fill{Selector: usernameField, Value: creds.Username},
					flow.Fill{Selector: passwordField, Value: creds.Password},
					flow.Fill{Selector: confirmField, Value: creds.Password + "-mismatch"},
					flow.Click{Selector: registerButton},
					flow.ExpectValidation{Text: "Passwords do not match"},
					flow.ExpectURL{Path: "/register"},
				},
			},
			{
				// A rejected mismatch must leave no account behind, so the
				// same username registers cleanly on the next attempt.
				Name: "retry after mismatch succeeds",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/register"},
					flow.Fill{Selector: usernameField, Value: creds.Username},
					flow.Fill{Selector: passwordField, Value: creds.Password},
					flow.Fill{Selector: confirmField, Value: creds.Password},
					flow.Click{Selector: registerButton},
					flow.ExpectURL{Path: "/"},
					flow.Expect{Cond: flow.TextVisible("Hello, " + creds.Username)},
				},
			},
			{
				Name: "required fields block empty submit",
				Steps: []flow.Step{
					flow.ClearCookies{},
					flow.Navigate{Path: "/register"},
					flow.Expect{Cond: flow.Focused(usernameField)},
					flow.Click{Selector: registerButton},
					// Native required-field validation keeps the page put.
					flow.ExpectURL{Path: "/register"},
					flow.Expect{Cond: flow.Focused(usernameField)},
				},
			},
		},
	}
}
