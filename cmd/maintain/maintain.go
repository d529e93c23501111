// Package maintain implements the `vaultkeep maintain` subcommand: the
// single entry point that runs a full scan-resolve-classify-persist pass
// over a vault.
package maintain

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaultkeep/vaultkeep/internal/cache"
	vkcli "github.com/vaultkeep/vaultkeep/internal/cli"
	"github.com/vaultkeep/vaultkeep/internal/config"
	vkerrors "github.com/vaultkeep/vaultkeep/internal/errors"
	"github.com/vaultkeep/vaultkeep/internal/engine"
	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
	"github.com/vaultkeep/vaultkeep/internal/safety"
)

// NewMaintainCommand builds the `maintain` subcommand.
func NewMaintainCommand() *cobra.Command {
	var vaultPath string

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run a full maintenance pass over a vault",
		Long: `maintain scans the vault, resolves back-populate candidates, repairs
frontmatter dates, classifies image assets, and persists the result
(or, with --dry-run, reports what it would do).`,
	}

	cmd.Flags().StringVar(&vaultPath, "vault-path", "", "vault root to scan (overrides config obsidian_path)")

	cmd.RunE = vkcli.WithErrorHandling(func(cmd *cobra.Command, args []string) error {
		return run(cmd, vaultPath)
	})

	return cmd
}

func run(cmd *cobra.Command, vaultPathFlag string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if vaultPathFlag != "" {
		cfg.ObsidianPath = vaultPathFlag
	}
	cfg.ObsidianPath = config.ExpandPath(cfg.ObsidianPath)
	cfg.OutputFolder = config.ExpandPath(cfg.OutputFolder)
	cfg.Cache.Path = config.ExpandPath(cfg.Cache.Path)
	if cfg.ObsidianPath == "" {
		return vkerrors.NewConfigError("", "obsidian_path is not set: "+vkcli.CommonErrorSuggestions["obsidian_path"])
	}

	applyChanges := cfg.ApplyChanges && !viper.GetBool("dry_run")

	hashCachePath := cfg.Cache.Path
	if hashCachePath == "" {
		hashCachePath = filepath.Join(cfg.ObsidianPath, ".vaultkeep", "image-hashes.sqlite")
	}
	hashCache, err := cache.Open(hashCachePath)
	if err != nil {
		return vkerrors.WrapError(err, "opening image hash cache", hashCachePath)
	}
	defer hashCache.Close()

	backupDir := filepath.Join(cfg.ObsidianPath, ".vaultkeep", "backups")
	backups := safety.NewBackupManager(backupDir)
	recorder := safety.NewDryRunRecorder()

	now := frontmatter.NewUTCTime(time.Now())

	outcome, err := engine.Run(engine.Options{
		VaultPath:           cfg.ObsidianPath,
		IgnoreFolders:       cfg.IgnoreFolders,
		DoNotBackPopulate:   cfg.DoNotBackPopulate,
		FileProcessLimit:    cfg.FileProcessLimit,
		OperationalTimezone: cfg.OperationalTimezone,
		ApplyChanges:        applyChanges,
		ScanWorkers:         cfg.Batch.MaxWorkers,
		ResolveWorkers:      cfg.Batch.MaxWorkers,
	}, hashCache.Hash, backups, recorder, now)
	if err != nil {
		return vkerrors.WrapError(err, "maintenance pass", cfg.ObsidianPath)
	}

	for _, parseErr := range outcome.ParseErrors {
		fmt.Fprintf(os.Stderr, "warning: %v\n", parseErr)
	}

	if !applyChanges {
		fmt.Fprintln(os.Stderr, "dry run: no files were written; pass --dry-run=false (and set apply_changes: true) to apply.")
	}

	if cfg.OutputFolder != "" {
		reportPath := filepath.Join(cfg.OutputFolder, "vaultkeep-report.md")
		if err := os.MkdirAll(cfg.OutputFolder, 0755); err != nil {
			return vkerrors.WrapError(err, "writing report", reportPath)
		}
		if err := os.WriteFile(reportPath, []byte(outcome.Report), 0644); err != nil {
			return vkerrors.WrapError(err, "writing report", reportPath)
		}
		fmt.Printf("report written to %s\n", reportPath)
		return nil
	}

	fmt.Print(outcome.Report)
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return config.LoadConfigFromFile(path)
	}
	return config.LoadConfigWithFallback(config.GetDefaultConfigPaths())
}
