package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/playwright-bdd/internal/errs"
	"github.com/kuitang/playwright-bdd/internal/runner"
)

type captured struct {
	calls int
	opts  runner.Options
}

func newTestCommand(t *testing.T, status int, runErr error) (*cobra.Command, *captured, *bytes.Buffer) {
	t.Helper()
	t.Chdir(t.TempDir())

	got := &captured{}
	c := &rootCmd{run: func(_ *cobra.Command, opts runner.Options) (int, error) {
		got.calls++
		got.opts = opts
		return status, runErr
	}}
	var out bytes.Buffer
	return c.command(&out, &out), got, &out
}

func TestRoot_PassesFlagsToRunner(t *testing.T) {
	t.Setenv("LOGIN_PAGE_URL", "https://app.test/login")
	cmd, got, _ := newTestCommand(t, errs.ExitOK, nil)
	cmd.SetArgs([]string{"--tags", "@smoke", "--strict", "--stop-on-failure", "-f", "progress", "features/login.feature"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, 1, got.calls)
	assert.Equal(t, "@smoke", got.opts.Tags)
	assert.True(t, got.opts.Strict)
	assert.True(t, got.opts.StopOnFailure)
	assert.Equal(t, "progress", got.opts.Format)
	assert.Equal(t, []string{"features/login.feature"}, got.opts.Paths)
	assert.Equal(t, "https://app.test/login", got.opts.Config.LoginPageURL)
}

func TestRoot_FailedRunReportsStatus(t *testing.T) {
	cmd, _, _ := newTestCommand(t, errs.ExitFailed, nil)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errs.ExitFailed, exitCode(err))
}

func TestRoot_UnavailableBrowser(t *testing.T) {
	cause := errs.New(errs.Unavailable, "launch chromium")
	cmd, _, _ := newTestCommand(t, errs.ExitUnavailable, cause)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	assert.Equal(t, errs.ExitUnavailable, exitCode(err))
	assert.True(t, errors.Is(err, cause))
}

func TestRoot_ConfigErrorsAreUsageErrors(t *testing.T) {
	cmd, got, _ := newTestCommand(t, errs.ExitOK, nil)
	cmd.SetArgs([]string{"--config", "missing.yaml"})

	err := cmd.Execute()
	assert.Equal(t, errs.ExitUsage, exitCode(err))
	assert.Zero(t, got.calls)
}

func TestRoot_InvalidConfigValues(t *testing.T) {
	cmd, got, _ := newTestCommand(t, errs.ExitOK, nil)
	require.NoError(t, os.WriteFile("bddrun.yaml", []byte("browser:\n  timeoutMs: -5\n"), 0o644))
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	assert.Equal(t, errs.ExitUsage, exitCode(err))
	assert.Zero(t, got.calls)
}

func TestConfigCommand_PrintsSummary(t *testing.T) {
	cmd, got, out := newTestCommand(t, errs.ExitOK, nil)
	t.Setenv("BROWSER_TYPE", "opera")
	path := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reports:\n  path: /tmp/reports\n"), 0o644))
	cmd.SetArgs([]string{"config", "--config", path})

	require.NoError(t, cmd.Execute())
	assert.Zero(t, got.calls)
	assert.Contains(t, out.String(), path)
	assert.Contains(t, out.String(), `chromium (unknown "opera", using default)`)
	assert.Contains(t, out.String(), "/tmp/reports/Playwright-Traces")
}

func TestRoot_UnknownFlagIsUsageError(t *testing.T) {
	cmd, got, _ := newTestCommand(t, errs.ExitOK, nil)
	cmd.SetArgs([]string{"--nope"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	assert.Equal(t, errs.ExitUsage, exitCode(err))
	assert.Zero(t, got.calls)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, errs.ExitOK, exitCode(nil))
	assert.Equal(t, errs.ExitUsage, exitCode(errs.New(errs.InvalidArgument, "bad tag expression")))
	assert.Equal(t, errs.ExitUnavailable, exitCode(errs.New(errs.Unavailable, "launch chromium")))
	assert.Equal(t, errs.ExitFailed, exitCode(errors.New("unclassified")))
	assert.Equal(t, 7, exitCode(&exitError{code: 7}))
	assert.Equal(t, "exit status 7", (&exitError{code: 7}).Error())
}
