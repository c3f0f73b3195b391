package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imedwei/backupdbtool/internal/backup"
	"github.com/imedwei/backupdbtool/internal/utils"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "backupdbtool",
		Short: "Back up PostgreSQL and MySQL databases to object storage",
		Long: `backupdbtool dumps a database, compresses and encrypts the dump with 7z,
uploads archives to object storage and prunes old backups.

Examples:
  # Dump and archive a database
  backupdbtool -c config.toml backup appdb

  # Upload every local archive
  backupdbtool -c config.toml upload --all

  # Remove local archives and remote backups older than yesterday
  backupdbtool -c config.toml delete --all`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the TOML config file (required)")

	root.AddCommand(
		newBackupCmd(a),
		newUploadCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newVersionCmd(),
	)
	return root
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <database>",
		Short: "Dump a database into an encrypted 7z archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, o *backup.Orchestrator) error {
				archive, err := o.Backup(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), archive)
				return err
			})
		},
	}
}

func newUploadCmd(a *app) *cobra.Command {
	var (
		file string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload one archive or every local archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, o *backup.Orchestrator) error {
				return o.Upload(ctx, file, all)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "local archive to upload")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "upload every archive in the backup directory")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var (
		key string
		all bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one remote backup or prune backups older than yesterday",
		Long: `delete first applies app.local_cleanup to the backup directory, then
removes the remote object named by --key, or with --all every object under
app.cos_path last modified before the start of yesterday (UTC).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, o *backup.Orchestrator) error {
				return o.Delete(ctx, key, all)
			})
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "remote object key to delete")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "prune every stale remote backup")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, o *backup.Orchestrator) error {
				objects, err := o.List(ctx)
				if err != nil {
					return err
				}
				return backup.RenderList(cmd.OutOrStdout(), objects)
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No config needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "backupdbtool v%s\n", utils.Version)
			return err
		},
	}
}
