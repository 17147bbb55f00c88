package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %v", err)
	return exitErr.Code
}

func TestRunRejectsInvalidTarget(t *testing.T) {
	_, stderr, err := execute(t, "run", "--target", "not-a-url")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, stderr, "--target must be an absolute http(s) URL")
}

func TestRunRejectsNegativeRetries(t *testing.T) {
	_, _, err := execute(t, "run", "--target", "http://127.0.0.1:1", "--retries", "-1")
	assert.Equal(t, 2, exitCode(t, err))
}

func TestRunUnmatchedPatternIsConfigError(t *testing.T) {
	// The pattern check happens before any browser launches, so this fails
	// fast even without Playwright installed.
	_, stderr, err := execute(t, "run", "--target", "http://127.0.0.1:1", "zzz-no-such-chain")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, stderr, "no chains match")
}

func TestRunRejectsExtraArgs(t *testing.T) {
	_, _, err := execute(t, "run", "pattern-one", "pattern-two")
	require.Error(t, err)
}

func TestDemoRejectsArgs(t *testing.T) {
	_, _, err := execute(t, "demo", "unexpected")
	require.Error(t, err)
}
