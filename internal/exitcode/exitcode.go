// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown position).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// StorageError indicates a local store or backend error.
	StorageError = 3
)
