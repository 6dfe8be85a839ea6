package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/oncovista-opd-server/internal/feedback"
)

func newFeedbackCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Inspect and move the local clinician feedback store",
		Long:  "Operate on the SQLite feedback store used by the MCP server.\nThe default database lives under ONCOVISTA_DATA_DIR.",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "feedback database path (default: $ONCOVISTA_DATA_DIR/feedback.db)")

	open := func(cmd *cobra.Command) (*feedback.SQLiteStore, error) {
		path := dbPath
		if path == "" {
			path = getCLIContext(cmd).lite.FeedbackDBPath()
		}
		store, err := feedback.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open feedback store: %w", err)
		}
		return store, nil
	}

	cmd.AddCommand(
		newFeedbackListCmd(open),
		newFeedbackSummaryCmd(open),
		newFeedbackExportCmd(open),
		newFeedbackImportCmd(open),
	)
	return cmd
}

const defaultListLimit = 20

type storeOpener func(cmd *cobra.Command) (*feedback.SQLiteStore, error)

func newFeedbackListCmd(open storeOpener) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 || offset < 0 {
				return fmt.Errorf("--limit and --offset must be non-negative")
			}
			if limit == 0 {
				limit = defaultListLimit
			}
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum entries (0 means default)")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	return cmd
}

func newFeedbackSummaryCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show clinician agreement rates per assessment kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
}

func newFeedbackExportCmd(open storeOpener) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all feedback as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if out == "" || out == "-" {
				return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()
			return store.ExportJSON(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newFeedbackImportCmd(open storeOpener) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import feedback from a JSON export; existing entries are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", file, err)
				}
				defer f.Close()
				in = f
			}

			imported, skipped, err := store.ImportJSON(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]int{"imported": imported, "skipped": skipped})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "export file, - for stdin [REQUIRED]")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
