package commands

import (
	"errors"
	"fmt"
	"io"

	"lockin/internal/config"
	"lockin/internal/exitcode"
)

// ok prints the success marker unless quiet.
func ok(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// usageError reports bad arguments.
func usageError(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.UserError
}

// storageFailed reports a failure of the local store.
func storageFailed(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: storage error: %v\n", err)
	return exitcode.StorageError
}

// lookupFailed reports a failed position lookup.
func lookupFailed(errOut io.Writer, err error) int {
	var nf notFoundError
	if errors.As(err, &nf) {
		return usageError(errOut, err)
	}
	return storageFailed(errOut, err)
}

// applied maps the result of a manager mutation to an exit code.
// A mutation that changed nothing means the position went stale.
func applied(cfg *config.Config, pos int, changed bool, err error, out, errOut io.Writer) int {
	if err != nil {
		return storageFailed(errOut, err)
	}
	if !changed {
		return usageError(errOut, errNotFound(pos))
	}
	return ok(cfg, out)
}
