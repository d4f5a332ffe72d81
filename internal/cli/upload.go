package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/registry"
)

// uploadOptions are the flags of the upload command.
type uploadOptions struct {
	workers       int
	retainFailed  bool
	includeHidden bool
	dryRun        bool
	pathsFrom     string
	base          string
	picker        bool
}

// applyTo copies the flags that were set onto cfg.
func (o *uploadOptions) applyTo(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") {
		cfg.UploadWorkers = o.workers
	}
	if cmd.Flags().Changed("retain-failed") {
		cfg.RetainFailed = o.retainFailed
	}
	if cmd.Flags().Changed("include-hidden") {
		cfg.IncludeHidden = o.includeHidden
	}
}

func newUploadCmd() *cobra.Command {
	opts := &uploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload [folder...]",
		Short: "Upload one or more folders",
		Long: `Collect the given folders (and files) and upload each top folder as one
submission.

Every file is grouped under the first segment of its path relative to the
picked location, so "upload ./data/ds1 ./data/ds2" submits two folders, ds1
and ds2.

With --picker, each argument must be a directory and is listed in one pass
the way a directory picker does, instead of being walked as a drop.

With --paths-from, the folders are read from a manifest of relative paths
(one per line, e.g. "ds1/images/cat.png") resolved against --base.

Examples:
  aiv-upload upload ./adult_dataset
  aiv-upload upload --kind model ./models/*
  aiv-upload upload --paths-from files.txt --base ./data
  aiv-upload upload --backend s3 --dry-run ./adult_dataset`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.pathsFrom == "" {
				return fmt.Errorf("no folders given: pass folder paths or --paths-from")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts.applyTo(cmd, cfg)

			return runUpload(GetContext(), cmd.OutOrStdout(), cfg, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Folders uploaded concurrently (default from config)")
	cmd.Flags().BoolVar(&opts.retainFailed, "retain-failed", true, "Report failed folders as still queued")
	cmd.Flags().BoolVar(&opts.includeHidden, "include-hidden", false, "Include dot-files and dot-directories")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the queue without uploading")
	cmd.Flags().StringVar(&opts.pathsFrom, "paths-from", "", "Read relative file paths from this manifest")
	cmd.Flags().StringVar(&opts.base, "base", ".", "Base directory for --paths-from")
	cmd.Flags().BoolVar(&opts.picker, "picker", false, "List directory arguments in one pass instead of walking them")

	return cmd
}

func runUpload(ctx context.Context, out io.Writer, cfg *config.Config, opts *uploadOptions, args []string) error {
	logger := GetLogger()

	s, err := newSession(ctx, cfg, out, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.runUpload(ctx, opts, args)
}

// runUpload queues args (or the manifest) as one pass and submits it.
func (s *session) runUpload(ctx context.Context, opts *uploadOptions, args []string) error {
	if opts.pathsFrom != "" {
		entries, err := s.collectManifest(opts.pathsFrom, opts.base)
		if err != nil {
			return err
		}
		s.add(entries)
	}
	if len(args) > 0 {
		var entries []collector.Entry
		var err error
		if opts.picker {
			entries, err = s.collectPicked(args)
		} else {
			entries, err = s.collectPaths(ctx, args)
		}
		if err != nil {
			return err
		}
		s.add(entries)
	}

	if opts.dryRun {
		fmt.Fprint(s.out, registry.DescribeQueue(s.queue.Snapshot()))
		fmt.Fprintf(s.out, "Dry run: would %s to %s\n", s.queue.Snapshot().SubmitLabel(), s.cfg.Backend)
		return nil
	}

	round, err := s.submit(ctx)
	if err != nil {
		return err
	}

	if left := s.queue.Snapshot(); left.Count() > 0 {
		fmt.Fprintf(s.out, "Still queued %s:\n%s", left.Summary(), registry.DescribeQueue(left))
	}
	if round.FailCount > 0 {
		return fmt.Errorf("%d of %d folders failed", round.FailCount, len(round.Outcomes))
	}
	return nil
}
