package main

import (
	"fmt"

	"github.com/newthinker/archivist/internal/cleaner"
	"github.com/newthinker/archivist/internal/core"
	"github.com/spf13/cobra"
)

var (
	cleanFile          string
	cleanInteractive   bool
	cleanRemoveSidecar bool
	cleanDryRun        bool
	cleanForcePrompt   bool

	stdinIsTerminal = cleaner.StdinIsTerminal
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete local files a verification report marks as verified",
	Long: `Read a report written by verify and delete each local file whose row is
True. Any other row, and any file that is already gone, is left alone.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanFile, "file", "f", "", "verification report to act on (required)")
	cleanCmd.Flags().BoolVarP(&cleanInteractive, "interactive", "i", false, "confirm each deletion")
	cleanCmd.Flags().BoolVar(&cleanRemoveSidecar, "remove-sidecar", false, "also delete <file>.archived")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "list files that would be deleted")
	cleanCmd.Flags().BoolVar(&cleanForcePrompt, "force-prompt", false, "allow --interactive when stdin is not a terminal")

	cleanCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	r, err := newRun(core.PhaseClean)
	if err != nil {
		return err
	}
	defer r.log.Sync()

	if err := r.cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	var prompter cleaner.Prompter
	if cleanInteractive {
		if !cleanForcePrompt && !stdinIsTerminal() {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("--interactive needs a terminal on stdin, use --force-prompt to read answers from a pipe"))
		}
		prompter = cleaner.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	manager := cleaner.New(cleaner.Config{
		RunID:         r.id,
		Interactive:   cleanInteractive,
		RemoveSidecar: cleanRemoveSidecar || r.cfg.Clean.RemoveSidecar,
		DryRun:        cleanDryRun,
	}, prompter, cmd.OutOrStdout(), r.log)

	summary, err := manager.Run(ctx, cleanFile)
	if err != nil {
		return r.abort(ctx, cmd.ErrOrStderr(), summary, err)
	}
	return r.finish(ctx, cmd.ErrOrStderr(), summary)
}
