package domain

import "errors"

// Sentinel errors checked with errors.Is across the module. They are plain
// errors so decorating them with zerr metadata wraps them as the cause and
// keeps them detectable in the chain.
var (
	// ErrParse is returned when the matrix configuration file is malformed.
	ErrParse = errors.New("malformed configuration")

	// ErrUnknownEnvironment is returned when a selected or depended-on name
	// does not resolve to any declared or templated environment.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrCyclicDependency is returned when the depends edges form a cycle.
	ErrCyclicDependency = errors.New("cyclic environment dependency")

	// ErrDependencyResolution is returned when an environment's dependency
	// set cannot be provisioned.
	ErrDependencyResolution = errors.New("dependency resolution failed")

	// ErrCommandNotAllowed is returned when a command references an
	// executable that is neither in the provisioned environment nor on the
	// environment's allow-list.
	ErrCommandNotAllowed = errors.New("command not allowed")

	// ErrCommandExecution is returned when a user command exits non-zero.
	ErrCommandExecution = errors.New("command failed")

	// ErrRunFailed is the aggregate error when at least one environment failed.
	ErrRunFailed = errors.New("run failed")

	// ErrRunInterrupted is the aggregate error when the run was interrupted
	// before all selected environments finished.
	ErrRunInterrupted = errors.New("run interrupted")
)
