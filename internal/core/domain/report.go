package domain

import "time"

// EnvStatus is the lifecycle state of one environment in a run.
type EnvStatus string

const (
	// StatusPending indicates the environment is waiting to be executed.
	StatusPending EnvStatus = "pending"
	// StatusRunning indicates the environment is currently executing.
	StatusRunning EnvStatus = "running"
	// StatusPassed indicates every command exited zero.
	StatusPassed EnvStatus = "passed"
	// StatusFailed indicates provisioning or a command failed.
	StatusFailed EnvStatus = "failed"
	// StatusInterrupted indicates the run was interrupted before or while
	// the environment executed.
	StatusInterrupted EnvStatus = "interrupted"
)

// EnvResult records the outcome of one environment.
type EnvResult struct {
	Name     InternedString `yaml:"name"`
	Status   EnvStatus      `yaml:"status"`
	Duration time.Duration  `yaml:"duration"`

	// FailedCommand and FailedIndex identify the first failing entry of the
	// command list. FailedIndex is -1 when no command failed.
	FailedCommand string `yaml:"failed_command,omitempty"`
	FailedIndex   int    `yaml:"failed_index"`

	// ExitCode is the failing command's exit status, 0 on success.
	ExitCode int `yaml:"exit_code"`

	// Err is the environment-local error, nil on success.
	Err error `yaml:"-"`

	// Reason is Err rendered for serialized reports.
	Reason string `yaml:"reason,omitempty"`
}

// RunReport aggregates the results of one invocation in plan order.
type RunReport struct {
	Results     []EnvResult `yaml:"results"`
	Interrupted bool        `yaml:"interrupted"`
}

// Failed reports whether any environment failed.
func (r *RunReport) Failed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Err maps the aggregate outcome to the run-level sentinel errors: nil when
// everything passed, ErrRunInterrupted on interruption, ErrRunFailed when at
// least one environment failed.
func (r *RunReport) Err() error {
	if r.Interrupted {
		return ErrRunInterrupted
	}
	if r.Failed() {
		return ErrRunFailed
	}
	return nil
}
