// Command inkboard runs the board server and its maintenance tooling.
//
// Subcommands:
//
//	serve    start the HTTP API
//	migrate  create or update the store schema
//	export   write a board (items and revision history) to an archive file
//	import   re-create a board from an archive file
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkboard/inkboard/pkg/export"
	"github.com/inkboard/inkboard/pkg/inkboard"
	"github.com/inkboard/inkboard/pkg/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "inkboard",
		Short:         "Shared whiteboard server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newExportCmd(&configPath))
	cmd.AddCommand(newImportCmd(&configPath))
	return cmd
}

// openApp loads the configuration and connects to the configured store.
func openApp(ctx context.Context, configPath string) (*inkboard.App, error) {
	cfg, err := inkboard.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return inkboard.New(ctx, cfg)
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate store: %w", err)
			}
			return app.Run(ctx)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func newExportCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <board-id> <file>",
		Short: "Write a board and its revision history to an archive file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := models.ParseBoardID(args[0])
			if err != nil {
				return fmt.Errorf("invalid board ID: %w", err)
			}

			ctx := cmd.Context()
			app, err := openApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := export.ExportBoard(ctx, app.Store(), boardID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported board %s to %s\n", boardID, args[1])
			return nil
		},
	}
	return cmd
}

func newImportCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Re-create a board from an archive file under fresh IDs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate store: %w", err)
			}
			board, err := export.ImportBoard(ctx, app.Store(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported board %s (%q)\n", board.ID, board.Name)
			return nil
		},
	}
	return cmd
}
