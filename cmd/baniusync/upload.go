package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"baniusync/internal/app"
	"baniusync/internal/config"
	"baniusync/internal/logger"
	"baniusync/internal/resolve"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [paths...]",
		Short: "Upload files and directories",
		RunE:  runUpload,
	}
	addUploadFlags(cmd)
	return cmd
}

func addUploadFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("file", nil, "File to upload under its base name (repeatable)")
	cmd.Flags().StringSlice("dir", nil, "Directory to upload recursively (repeatable)")
	cmd.Flags().Bool("remember", false, "Save credentials and the last directory's parent to the profile")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	files, _ := cmd.Flags().GetStringSlice("file")
	dirs, _ := cmd.Flags().GetStringSlice("dir")
	selections, err := buildSelections(cfg.Upload.Dir, args, files, dirs)
	if err != nil {
		return err
	}
	if len(selections) == 0 {
		return app.ErrNoSelection
	}

	uploader, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create uploader: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Received shutdown signal, abandoning queued and in-flight uploads")
		cancel()
	}()

	report, err := uploader.Run(ctx, selections)

	if closeErr := uploader.Close(); closeErr != nil {
		log.Error("Error closing uploader", zap.Error(closeErr))
	}
	if err != nil {
		return err
	}

	if cfg.Upload.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Would upload %d files\n", report.Enqueued)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d/%d\n", report.Completed, report.Enqueued)
	}

	if remember, _ := cmd.Flags().GetBool("remember"); remember {
		rememberLastDir(cfg, selections)
		if err := config.SaveProfile(cfg, cfg.Profile); err != nil {
			return err
		}
	}

	return nil
}

// buildSelections turns command line paths into selections. Relative paths
// are taken from the working directory; when a path does not exist there but
// does under fallbackDir (the profile's last directory), that one is used.
// Positional paths are classified by stat.
func buildSelections(fallbackDir string, args, files, dirs []string) ([]resolve.Selection, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	var fallback string
	if fallbackDir != "" {
		if fallback, err = filepath.Abs(fallbackDir); err != nil {
			return nil, fmt.Errorf("invalid directory %s: %w", fallbackDir, err)
		}
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		local := filepath.Join(wd, p)
		if fallback == "" || fallback == wd {
			return local
		}
		if _, err := os.Stat(local); err == nil {
			return local
		}
		if _, err := os.Stat(filepath.Join(fallback, p)); err == nil {
			return filepath.Join(fallback, p)
		}
		return local
	}

	positional := make([]string, 0, len(args))
	for _, a := range args {
		positional = append(positional, abs(a))
	}
	selections, err := resolve.New(osfs.New("/")).Classify(positional)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		selections = append(selections, resolve.Selection{Path: abs(f), Kind: resolve.File})
	}
	for _, d := range dirs {
		selections = append(selections, resolve.Selection{Path: abs(d), Kind: resolve.Directory})
	}

	return selections, nil
}

// rememberLastDir points the profile's directory at the parent of the last
// selected directory
func rememberLastDir(cfg *config.Config, selections []resolve.Selection) {
	for i := len(selections) - 1; i >= 0; i-- {
		if selections[i].Kind == resolve.Directory {
			cfg.Upload.Dir = filepath.Dir(selections[i].Path)
			return
		}
	}
}
