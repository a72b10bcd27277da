package kv

import (
	"github.com/ValentinKolb/fKV/cmd/util"
	"github.com/ValentinKolb/fKV/lib/store"
	"github.com/ValentinKolb/fKV/lib/store/fstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	kvStore *fstore.Store

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKVStore,
	}
)

func init() {
	key := "namespace"
	KeyValueCommands.PersistentFlags().StringP(key, "n", "", util.WrapString("Namespace of the key (empty for the root space)"))

	key = "prev-version"
	KeyValueCommands.PersistentFlags().Int64(key, -1, util.WrapString("Only write if the key has this version (0 = key must not exist, -1 = unconditional)"))

	key = "wait"
	KeyValueCommands.PersistentFlags().Bool(key, true, util.WrapString("Wait for writes to be applied and read the store file instead of the cache"))

	// Add subcommands
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(listCmd)
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(flushCmd)
	KeyValueCommands.AddCommand(backupCmd)
	KeyValueCommands.AddCommand(restoreCmd)
	KeyValueCommands.AddCommand(shellCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVStore opens the store
func setupKVStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	kvStore, err = util.OpenStore()
	return err
}

// readOptions returns the options of a read command
func readOptions() []store.Option {
	opts := []store.Option{store.WithNamespace(viper.GetString("namespace"))}
	if viper.GetBool("wait") {
		opts = append(opts, store.WithWait())
	}
	return opts
}

// writeOptions returns the options of a write command
func writeOptions() []store.Option {
	opts := readOptions()
	switch prev := viper.GetInt64("prev-version"); {
	case prev == 0:
		opts = append(opts, store.WithPrevAbsent())
	case prev > 0:
		opts = append(opts, store.WithPrevNode(&store.Record{Version: uint64(prev)}))
	}
	return opts
}
