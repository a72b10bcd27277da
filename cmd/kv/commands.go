package kv

import (
	"fmt"

	"github.com/ValentinKolb/fKV/cmd/util"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the record of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := kvStore.Get(args[0], readOptions()...)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), res)
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all records of the root space or a namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := kvStore.List(readOptions()...)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), results)
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. Values that are valid JSON are stored as JSON, everything else as a string.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := kvStore.Set(args[0], util.ParseValue(args[1]), writeOptions()...)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), res)
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := kvStore.Delete(args[0], writeOptions()...)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), res)
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Deletes all keys and namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvStore.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "flushed successfully")
			return nil
		},
	}
	backupCmd = &cobra.Command{
		Use:   "backup [dst]",
		Short: "Writes a copy of the store file to dst",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvStore.Backup(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", args[0])
			return nil
		},
	}
	restoreCmd = &cobra.Command{
		Use:   "restore [src]",
		Short: "Replaces the content of the store with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvStore.Restore(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored from %s\n", args[0])
			return nil
		},
	}
)
