package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/budget-tracker/internal/gcsuploader"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "Preview and import bank statements",
		Long: `budgetctl runs the statement import pipeline from the command line.

Examples:
  budgetctl preview october.csv
  budgetctl preview gs://statements/october.xlsx --output yaml
  budgetctl import october.csv --user 42 --dry-run
  budgetctl categories --user 42`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall command timeout")

	cmd.AddCommand(
		newPreviewCmd(opts),
		newImportCmd(opts),
		newCategoriesCmd(opts),
		newArchiveCmd(opts),
	)
	return cmd
}

// commandContext returns a context carrying a stderr logger so stdout stays
// clean for command output.
func (o *rootOptions) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	w := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}
	log := logger.NewWithWriter(w).Level(logger.ParseLevel(o.logLevel))

	ctx := logger.WithContext(cmd.Context(), log)
	return context.WithTimeout(ctx, o.timeout)
}

// readStatement loads a statement from a local path or a gs:// URI.
func readStatement(ctx context.Context, source string) (filename string, content []byte, err error) {
	if strings.HasPrefix(source, "gs://") {
		gcs, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			return "", nil, err
		}
		defer gcs.Close()

		content, err := gcs.FetchFromGCS(ctx, source)
		if err != nil {
			return "", nil, err
		}
		return gcsuploader.ExtractFilenameFromGCSURI(source), content, nil
	}

	content, err = os.ReadFile(source)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return filepath.Base(source), content, nil
}
