// Package root assembles vaultkeep's cobra command tree: the persistent
// flags every subcommand shares, and the subcommands themselves.
package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaultkeep/vaultkeep/cmd/maintain"
)

// NewRootCommand builds the vaultkeep command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaultkeep",
		Short: "Maintain wikilinks, frontmatter dates, and image assets in an Obsidian vault",
		Long: `vaultkeep scans a vault, back-populates plain-text mentions of known notes
into wikilinks, repairs date_created/date_modified frontmatter against the
filesystem, and deduplicates or removes broken image references.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "path to a vaultkeep config file")
	cmd.PersistentFlags().Bool("dry-run", true, "report planned changes without writing to disk")
	cmd.PersistentFlags().Bool("verbose", false, "include error codes and extra detail in output")
	cmd.PersistentFlags().Bool("quiet", false, "suppress suggestions and non-essential output")

	viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("dry_run", cmd.PersistentFlags().Lookup("dry-run"))
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", cmd.PersistentFlags().Lookup("quiet"))
	viper.SetEnvPrefix("VAULTKEEP")
	viper.AutomaticEnv()

	cmd.AddCommand(maintain.NewMaintainCommand())

	return cmd
}

// Execute runs the command tree and returns a process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
