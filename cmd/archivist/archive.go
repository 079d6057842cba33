package main

import (
	"fmt"

	"github.com/newthinker/archivist/internal/archiver"
	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	archiveFiles  string
	archiveBucket string
	archiveDryRun bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Upload files and record their archived digest",
	Long: `Upload a file, or every file under a directory, to the configured store.
A successful upload leaves <file>.archived next to the file. Files that
already have one are skipped, so the command can be rerun safely.`,
	Args: cobra.NoArgs,
	RunE: runArchive,
}

func init() {
	archiveCmd.Flags().StringVarP(&archiveFiles, "files", "f", "", "file or directory to archive (required)")
	archiveCmd.Flags().StringVarP(&archiveBucket, "bucket", "b", "", "destination bucket, overrides config")
	archiveCmd.Flags().BoolVar(&archiveDryRun, "dry-run", false, "list files that would be uploaded")

	archiveCmd.MarkFlagRequired("files")

	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	r, err := newRun(core.PhaseArchive)
	if err != nil {
		return err
	}
	defer r.log.Sync()

	if archiveBucket != "" {
		r.cfg.SetBucket(archiveBucket)
	}
	if err := r.cfg.ValidateStorage(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	store, err := archive.New(ctx, r.cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	var uploader archive.Uploader = store
	if r.cfg.Archive.VerifyUpload {
		uploader = archive.NewVerifyingUploader(store, r.log)
	}

	r.log.Info("archiving",
		zap.String("path", archiveFiles),
		zap.String("storage", r.cfg.Storage.Type),
		zap.String("bucket", store.Bucket()),
		zap.Bool("dry_run", archiveDryRun),
	)

	manager := archiver.New(uploader, archiver.Config{
		RunID:  r.id,
		DryRun: archiveDryRun,
	}, r.log)

	summary, err := manager.ArchivePath(ctx, archiveFiles)
	if err != nil {
		return r.abort(ctx, cmd.ErrOrStderr(), summary, err)
	}
	return r.finish(ctx, cmd.ErrOrStderr(), summary)
}
