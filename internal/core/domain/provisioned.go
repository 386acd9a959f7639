package domain

// ProvisionedEnv is an isolated dependency set satisfying one environment's
// specifiers. It is an explicit value handed to the executor, never ambient
// process state.
type ProvisionedEnv struct {
	// Name of the environment this set was provisioned for.
	Name InternedString

	// ID is the deterministic hash of the dependency specifiers that
	// produced this set (see GenerateEnvID).
	ID string

	// Root is the directory holding the installation.
	Root string

	// BinDir holds the managed executables; commands are resolved here
	// before the allow-list is consulted.
	BinDir string

	// Env carries "KEY=VALUE" variables commands need to run inside the
	// set (PATH, VIRTUAL_ENV, ...).
	Env []string
}
