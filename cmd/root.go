package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/fKV/cmd/kv"
	"github.com/ValentinKolb/fKV/cmd/lock"
	"github.com/ValentinKolb/fKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "fkv",
		Short: "file backed key-value store",
		Long: fmt.Sprintf(`fKV (v%s)

A durable, versioned key-value store kept in a single JSON file.
Every key carries a version for compare-and-swap, keys can be grouped
in namespaces, and several processes can share one store file.

All flags can also be set as environment variables with the prefix
FKV_ (e.g. FKV_PATH=/var/lib/app/store.json).`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fKV v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	err := RootCmd.Execute()

	// apply queued writes before exiting
	util.Shutdown()

	if err != nil {
		os.Exit(1)
	}
}
