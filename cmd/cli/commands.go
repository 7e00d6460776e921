package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/gcsuploader"
	"github.com/dvloznov/budget-tracker/internal/infra"
	"github.com/dvloznov/budget-tracker/internal/jobs"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// cliUser owns previews that are never committed.
const cliUser = "cli"

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var (
		output      string
		strictDates bool
	)

	cmd := &cobra.Command{
		Use:   "preview <file|gs://bucket/object>",
		Short: "Parse and validate a statement without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := root.commandContext(cmd)
			defer cancel()

			filename, content, err := readStatement(ctx, args[0])
			if err != nil {
				return err
			}

			svc := pipeline.NewService(pipeline.ServiceConfig{StrictDates: strictDates})
			view, err := svc.Preview(ctx, domain.Identity{UserID: cliUser}, filename, content)
			if err != nil {
				return err
			}

			return writeReport(cmd.OutOrStdout(), output, newPreviewReport(view))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	cmd.Flags().BoolVar(&strictDates, "strict-dates", false, "Mark unparseable dates invalid instead of using today")
	return cmd
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var (
		userID         string
		dryRun         bool
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "import <file|gs://bucket/object>",
		Short: "Import every valid row of a statement",
		Long: `Import parses the statement, deselects rows that fail validation and
commits the rest for the given user. Use --dry-run to see what would be imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := root.commandContext(cmd)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			filename, content, err := readStatement(ctx, args[0])
			if err != nil {
				return err
			}

			store, err := infra.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := pipeline.NewService(pipeline.ServiceConfig{
				Writer:      store,
				Categories:  store,
				StrictDates: cfg.StrictDates,
			})
			identity := domain.Identity{UserID: userID}

			view, err := svc.Preview(ctx, identity, filename, content)
			if err != nil {
				return err
			}
			for _, row := range view.Rows {
				if !row.IsValid && row.IsSelected {
					if view, err = svc.ToggleRow(ctx, identity, view.ID, row.TempID); err != nil {
						return err
					}
				}
			}

			out := cmd.OutOrStdout()
			skipped := view.TotalCount - view.SelectedCount
			if dryRun || view.SelectedCount == 0 {
				_ = svc.Discard(ctx, identity, view.ID)
				fmt.Fprintf(out, "Would import %d transaction(s), skipping %d invalid row(s).\n", view.SelectedCount, skipped)
				if view.SelectedCount == 0 && !dryRun {
					return errors.New("no valid rows to import")
				}
				return nil
			}

			result, err := svc.Commit(ctx, identity, view.ID, idempotencyKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d transaction(s), skipped %d invalid row(s).\n", result.CreatedCount, skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User the transactions belong to")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and report without writing")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Key that makes a repeated import a no-op")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newCategoriesCmd(root *rootOptions) *cobra.Command {
	var (
		userID string
		output string
	)

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories available to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := root.commandContext(cmd)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := infra.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := pipeline.NewService(pipeline.ServiceConfig{Categories: store})
			categories, err := svc.Categories(ctx, domain.Identity{UserID: userID})
			if err != nil {
				return err
			}

			return writeCategories(cmd.OutOrStdout(), output, categories)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User whose categories to list")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newArchiveCmd(root *rootOptions) *cobra.Command {
	var (
		userID string
		bucket string
	)

	cmd := &cobra.Command{
		Use:   "archive <file>",
		Short: "Upload a statement to the archive bucket and record it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := root.commandContext(cmd)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if bucket == "" {
				bucket = cfg.GCSBucket
			}
			if bucket == "" {
				return errors.New("a bucket is required: pass --bucket or set GCS_BUCKET")
			}

			filename, content, err := readStatement(ctx, args[0])
			if err != nil {
				return err
			}

			store, err := infra.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			gcs, err := gcsuploader.NewGCSStorageService(ctx)
			if err != nil {
				return err
			}
			defer gcs.Close()

			job := &jobs.ArchiveStatementJob{
				JobID:    uuid.NewString(),
				ImportID: uuid.NewString(),
				UserID:   userID,
				Filename: filename,
				Content:  content,
			}
			handler := jobs.NewArchiveHandler(gcs, store, bucket, time.Now)
			if err := handler(ctx, job); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Archived %s to %s\n", filename, job.GCSURI)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User the statement belongs to")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Archive bucket (defaults to GCS_BUCKET)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
