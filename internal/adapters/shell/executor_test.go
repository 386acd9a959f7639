package shell_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/matrix/internal/adapters/shell"
	"go.trai.ch/matrix/internal/core/domain"
)

// fakeProvisioned builds a provisioned environment whose bin directory
// contains the given stub executables (name -> exit status).
func fakeProvisioned(t *testing.T, name string, stubs map[string]int) *domain.ProvisionedEnv {
	t.Helper()

	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o750))

	for stub, status := range stubs {
		script := "#!/bin/sh\nexit " + strconv.Itoa(status) + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(binDir, stub), []byte(script), 0o700))
	}

	return &domain.ProvisionedEnv{
		Name:   domain.NewInternedString(name),
		Root:   root,
		BinDir: binDir,
		Env:    []string{"VIRTUAL_ENV=" + root, "PATH=" + binDir},
	}
}

func TestRun_ManagedExecutable(t *testing.T) {
	env := &domain.Environment{Name: domain.NewInternedString("lint")}
	provisioned := fakeProvisioned(t, "lint", map[string]int{"flake8": 0})

	e := shell.NewExecutor(nil)
	err := e.Run(context.Background(), env, provisioned, "flake8 tagging")
	assert.NoError(t, err)
}

func TestRun_ManagedExecutableFails(t *testing.T) {
	env := &domain.Environment{Name: domain.NewInternedString("lint")}
	provisioned := fakeProvisioned(t, "lint", map[string]int{"flake8": 3})

	e := shell.NewExecutor(nil)
	err := e.Run(context.Background(), env, provisioned, "flake8 tagging")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCommandExecution))

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestRun_UnmanagedExecutableRejected(t *testing.T) {
	env := &domain.Environment{Name: domain.NewInternedString("lint")}
	provisioned := fakeProvisioned(t, "lint", nil)

	e := shell.NewExecutor(nil)
	err := e.Run(context.Background(), env, provisioned, "make docs")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCommandNotAllowed))
}

func TestRun_AllowlistedExternal(t *testing.T) {
	env := &domain.Environment{
		Name:      domain.NewInternedString("lint"),
		Allowlist: []string{"true", "false"},
	}
	provisioned := fakeProvisioned(t, "lint", nil)

	e := shell.NewExecutor(nil)
	assert.NoError(t, e.Run(context.Background(), env, provisioned, "true"))

	err := e.Run(context.Background(), env, provisioned, "false")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCommandExecution))
}

func TestRun_AllowlistedButMissing(t *testing.T) {
	env := &domain.Environment{
		Name:      domain.NewInternedString("lint"),
		Allowlist: []string{"no-such-tool-anywhere"},
	}
	provisioned := fakeProvisioned(t, "lint", nil)

	e := shell.NewExecutor(nil)
	err := e.Run(context.Background(), env, provisioned, "no-such-tool-anywhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCommandExecution))
}

func TestRun_PassthroughVariables(t *testing.T) {
	t.Setenv("MATRIX_TEST_TOKEN", "hello")

	provisioned := fakeProvisioned(t, "lint", nil)
	withPass := &domain.Environment{
		Name:      domain.NewInternedString("lint"),
		Allowlist: []string{"sh"},
		PassEnv:   []string{"MATRIX_TEST_TOKEN"},
	}
	withoutPass := &domain.Environment{
		Name:      domain.NewInternedString("lint"),
		Allowlist: []string{"sh"},
	}

	e := shell.NewExecutor(nil)
	check := `sh -c 'test "$MATRIX_TEST_TOKEN" = hello'`

	assert.NoError(t, e.Run(context.Background(), withPass, provisioned, check))

	// Without the passenv declaration the variable must not be visible.
	err := e.Run(context.Background(), withoutPass, provisioned, check)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCommandExecution))
}

func TestRun_EmptyCommand(t *testing.T) {
	env := &domain.Environment{Name: domain.NewInternedString("lint")}
	e := shell.NewExecutor(nil)
	assert.NoError(t, e.Run(context.Background(), env, fakeProvisioned(t, "lint", nil), "   "))
}
