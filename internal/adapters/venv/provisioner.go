// Package venv provisions isolated Python environments with venv and pip.
package venv

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"

	"go.trai.ch/matrix/internal/core/domain"
	"go.trai.ch/matrix/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600

	// DefaultWorkDir is where provisioned environments live, one
	// subdirectory per environment name.
	DefaultWorkDir = ".matrix"

	// DefaultInterpreter creates the virtual environments.
	DefaultInterpreter = "python3"
)

// Provisioner implements ports.Provisioner using `python -m venv` and pip.
//
// A provisioned environment is reused across runs when the stored manifest's
// ID still matches the hash of the environment's dependency specifiers;
// otherwise the directory is rebuilt from scratch.
type Provisioner struct {
	log         ports.Logger
	workDir     string
	interpreter string
}

// NewProvisioner creates a Provisioner with the default work directory and
// interpreter.
func NewProvisioner(log ports.Logger) *Provisioner {
	return NewProvisionerWith(log, DefaultWorkDir, DefaultInterpreter)
}

// NewProvisionerWith creates a Provisioner rooted at workDir, creating
// environments with the given interpreter binary.
func NewProvisionerWith(log ports.Logger, workDir, interpreter string) *Provisioner {
	return &Provisioner{
		log:         log,
		workDir:     workDir,
		interpreter: interpreter,
	}
}

// Provision establishes an isolated dependency set for env.
func (p *Provisioner) Provision(ctx context.Context, env *domain.Environment) (*domain.ProvisionedEnv, error) {
	name := env.Name.String()
	root, err := filepath.Abs(filepath.Join(p.workDir, name))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve environment directory")
	}

	id := domain.GenerateEnvID(env.Deps)
	provisioned := &domain.ProvisionedEnv{
		Name:   env.Name,
		ID:     id,
		Root:   root,
		BinDir: filepath.Join(root, "bin"),
		Env: []string{
			"VIRTUAL_ENV=" + root,
			"PATH=" + filepath.Join(root, "bin"),
		},
	}

	if manifest, loadErr := LoadManifest(manifestPath(root)); loadErr == nil && manifest.EnvID == id {
		if p.log != nil {
			p.log.Info("reusing environment " + name)
		}
		return provisioned, nil
	}

	if p.log != nil {
		p.log.Info("provisioning environment " + name)
	}

	// A stale or partial installation is rebuilt rather than repaired.
	if err := os.RemoveAll(root); err != nil {
		return nil, zerr.Wrap(err, "failed to clear environment directory")
	}
	if err := os.MkdirAll(p.workDir, dirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create work directory")
	}

	if err := p.createEnv(ctx, root); err != nil {
		return nil, errors.Join(domain.ErrDependencyResolution, err)
	}
	if err := p.installDeps(ctx, provisioned, env.Deps); err != nil {
		return nil, errors.Join(domain.ErrDependencyResolution, err)
	}

	if err := SaveManifest(manifestPath(root), Manifest{EnvName: name, EnvID: id}); err != nil {
		// A failed manifest write only costs a rebuild on the next run.
		if p.log != nil {
			p.log.Warn("failed to persist environment manifest: " + err.Error())
		}
	}

	return provisioned, nil
}

func (p *Provisioner) createEnv(ctx context.Context, root string) error {
	cmd := exec.CommandContext(ctx, p.interpreter, "-m", "venv", root)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return zerr.Wrap(err, "failed to create virtual environment")
	}
	return nil
}

func (p *Provisioner) installDeps(ctx context.Context, provisioned *domain.ProvisionedEnv, deps []string) error {
	if len(deps) == 0 {
		return nil
	}

	args := append([]string{"install"}, deps...)
	pip := filepath.Join(provisioned.BinDir, "pip")
	cmd := exec.CommandContext(ctx, pip, args...) //nolint:gosec // specs come from the user's own config
	cmd.Env = append(os.Environ(), provisioned.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return zerr.Wrap(err, "failed to install dependencies")
	}
	return nil
}

func manifestPath(root string) string {
	return filepath.Join(root, "matrix-manifest.json")
}
