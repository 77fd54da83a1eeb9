package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vistahomes/internal/app"
)

var files = app.DefaultFiles

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vistactl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vistactl",
		Short:        "Vista Homes listing administration",
		Long:         `vistactl reads and appends to the listing collection using the same configuration as the server.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&files.App, "app-env", files.App, "Application env file")
	cmd.PersistentFlags().StringVar(&files.GitHub, "github-env", files.GitHub, "GitHub env file")
	cmd.PersistentFlags().StringVar(&files.S3, "s3-env", files.S3, "S3 env file")
	cmd.PersistentFlags().StringVar(&files.MinIO, "minio-env", files.MinIO, "MinIO env file")
	cmd.AddCommand(
		newListingsCmd(),
		newConfigCmd(),
	)
	return cmd
}

func newListingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Inspect and append listings",
	}
	cmd.AddCommand(newListCmd(), newSubmitCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the stored collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			items, err := a.Listings.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
}

func newSubmitCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a listing from a JSON file (use - for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			a, err := open(cmd)
			if err != nil {
				return err
			}
			result, err := a.Listings.Submit(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"ok":                true,
				"listing":           result.Listing,
				"failedAttachments": result.FailedAttachments,
				"version":           result.Version,
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file holding the submission")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load configuration, connect the backends and read the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			items, version, err := a.Repo.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"store":      a.Config.Store.Backend,
				"blobs":      a.Config.Store.BlobBackend,
				"targetPath": a.Config.Store.TargetPath,
				"imagesPath": a.Config.Store.ImagesPath,
				"listings":   len(items),
				"version":    version,
			})
		},
	})
	return cmd
}

// open wires the pipeline with logs going to stderr so stdout stays
// machine readable.
func open(cmd *cobra.Command) (*app.App, error) {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	return app.New(cmd.Context(), files, logger)
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
