package main

import (
	"fmt"

	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/report"
	"github.com/newthinker/archivist/internal/storage/archive"
	"github.com/newthinker/archivist/internal/verifier"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verifyDir     string
	verifyOutfile string
	verifyRemote  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check archived files against their recorded digest",
	Long: `Recompute the MD5 of every archived file and compare it with the digest
recorded at upload. With --outfile the results are written as a report
for the clean step; without it they are printed.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	// -d is taken by --debug
	verifyCmd.Flags().StringVar(&verifyDir, "dir", "", "file or directory to verify (required)")
	verifyCmd.Flags().StringVarP(&verifyOutfile, "outfile", "o", "", "write the verification report to this file")
	verifyCmd.Flags().BoolVar(&verifyRemote, "remote", false, "also require the object to still be in the store")

	verifyCmd.MarkFlagRequired("dir")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	r, err := newRun(core.PhaseVerify)
	if err != nil {
		return err
	}
	defer r.log.Sync()

	validate := r.cfg.Validate
	if verifyRemote {
		validate = r.cfg.ValidateStorage
	}
	if err := validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var remote archive.Storage
	if verifyRemote {
		store, err := archive.New(ctx, r.cfg.Storage)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		remote = store
	}

	manager := verifier.New(verifier.Config{RunID: r.id}, remote, r.log)

	if verifyOutfile == "" {
		summary, err := manager.VerifyPath(ctx, verifyDir, report.NewPrinter(cmd.OutOrStdout()))
		if err != nil {
			return r.abort(ctx, cmd.ErrOrStderr(), summary, err)
		}
		return r.finish(ctx, cmd.ErrOrStderr(), summary)
	}

	w, err := report.Create(verifyOutfile)
	if err != nil {
		return err
	}
	summary, err := manager.VerifyPath(ctx, verifyDir, w)
	if err != nil {
		w.Abort()
		return r.abort(ctx, cmd.ErrOrStderr(), summary, err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	r.log.Info("report written", zap.String("path", verifyOutfile), zap.Int("rows", w.Rows()))

	return r.finish(ctx, cmd.ErrOrStderr(), summary)
}
