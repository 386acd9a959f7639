// Package shell executes environment commands via os/exec.
package shell

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/matrix/internal/core/domain"
	"go.trai.ch/matrix/internal/core/ports"
	"go.trai.ch/zerr"
	"mvdan.cc/sh/v3/shell"
)

// Executor implements ports.Executor.
//
// Command strings are split with POSIX word-splitting rules. The executable
// is resolved in the provisioned bin directory first; anything outside it
// runs only when the environment allow-lists the name. Output streams are
// inherited (or routed to the telemetry vertex when one is recording), never
// captured or transformed.
type Executor struct {
	log ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(log ports.Logger) *Executor {
	return &Executor{log: log}
}

// Run executes a single command string inside the provisioned environment.
func (e *Executor) Run(ctx context.Context, env *domain.Environment, provisioned *domain.ProvisionedEnv, command string) error {
	fields, err := shell.Fields(command, nil)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to split command"), "command", command)
	}
	if len(fields) == 0 {
		return nil
	}

	name := fields[0]
	args := fields[1:]

	executable, err := resolveExecutable(name, env, provisioned)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // user provided command
	// Preserve the name as invoked; CommandContext sets Args[0] to the
	// resolved path.
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Env = buildEnv(provisioned, env.PassEnv)

	if vertex := ports.VertexFromContext(ctx); vertex != nil {
		cmd.Stdout = vertex.Stdout()
		cmd.Stderr = vertex.Stderr()
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return errors.Join(domain.ErrCommandExecution, err)
	}
	return nil
}

// resolveExecutable locates the executable for a command name. Managed
// executables win; unmanaged ones require an allow-list entry.
func resolveExecutable(name string, env *domain.Environment, provisioned *domain.ProvisionedEnv) (string, error) {
	if provisioned != nil {
		managed := filepath.Join(provisioned.BinDir, filepath.Base(name))
		if isExecutable(managed) {
			return managed, nil
		}
	}

	if !slices.Contains(env.Allowlist, filepath.Base(name)) {
		return "", zerr.With(
			zerr.With(domain.ErrCommandNotAllowed, "executable", name),
			"environment", env.Name.String(),
		)
	}

	if strings.ContainsRune(name, os.PathSeparator) {
		if isExecutable(name) {
			return name, nil
		}
		return "", errors.Join(domain.ErrCommandExecution, exec.ErrNotFound)
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Join(domain.ErrCommandExecution, err)
	}
	return path, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	mode := info.Mode()
	return !mode.IsDir() && mode&0o111 != 0
}

// buildEnv constructs the command environment: the provisioned variables,
// with the managed bin directory prepended to the invoking process's PATH,
// plus the declared passthrough variables. Nothing else leaks through.
func buildEnv(provisioned *domain.ProvisionedEnv, passEnv []string) []string {
	envMap := make(map[string]string)

	// PATH always passes through so allow-listed externals stay resolvable.
	envMap["PATH"] = os.Getenv("PATH")

	if provisioned != nil {
		for _, entry := range provisioned.Env {
			k, v, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			if k == "PATH" && envMap["PATH"] != "" {
				envMap[k] = v + string(os.PathListSeparator) + envMap["PATH"]
				continue
			}
			envMap[k] = v
		}
	}

	for _, key := range passEnv {
		if value, ok := os.LookupEnv(key); ok {
			envMap[key] = value
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}
