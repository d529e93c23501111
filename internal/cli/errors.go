// Package cli binds vaultkeep's user-friendly error machinery to cobra
// commands: reading the global --verbose/--quiet flags, formatting
// errors consistently, and exiting with the right code.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultkeep/vaultkeep/internal/errors"
)

// HandleError formats err through a verbosity-aware handler built from
// cmd's global flags, writes it to stderr, and returns the exit code the
// caller should use.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return 0
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	handler := errors.NewErrorHandler(verbose, quiet)
	fmt.Fprintln(os.Stderr, handler.Handle(err))
	return errors.ExitCode(err)
}

// WithErrorHandling wraps a RunE implementation so any error it returns
// is rendered through HandleError and the process exits with the
// matching code, instead of cobra's default bare-message-and-exit(1).
func WithErrorHandling(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			os.Exit(HandleError(cmd, err))
		}
		return nil
	}
}

// CommonErrorSuggestions maps frequent vaultkeep configuration mistakes
// to actionable fixes, for use when constructing errors.UserError values.
var CommonErrorSuggestions = map[string]string{
	"obsidian_path":        "Set obsidian_path in your config file, or pass --vault-path, pointing at the root of the vault to scan.",
	"operational_timezone": `Set operational_timezone to a valid IANA zone name, e.g. "America/New_York" or "UTC".`,
	"cache_path":           "Set cache.path in your config file to a writable location for the image hash cache database.",
}
