package lock

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/fKV/cmd/util"
	"github.com/ValentinKolb/fKV/lib/lockmgr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	lockMgr        lockmgr.ILockManager
	acquireTimeout time.Duration

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform lock operations",
		PersistentPreRunE: setupLockMgr,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire a lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [key] [ownerID]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock using the key and owner ID. The owner ID is the hex string returned by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}
)

func init() {
	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)

	LockCommands.PersistentFlags().String("lock-namespace", lockmgr.DefaultNamespace, util.WrapString("Namespace the lock records are stored in"))

	// Add flags specific to acquire
	acquireCmd.Flags().DurationVar(&acquireTimeout, "timeout", 30*time.Second, "Lock timeout (0 for no timeout)")
}

// setupLockMgr opens the store and creates the lock manager
func setupLockMgr(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.OpenStore()
	if err != nil {
		return err
	}

	lockMgr = lockmgr.NewLockManager(s, lockmgr.WithNamespace(viper.GetString("lock-namespace")))
	return nil
}

// runAcquire handles the acquire lock command
func runAcquire(cmd *cobra.Command, args []string) error {
	key := args[0]

	// Attempt to acquire the lock
	acquired, ownerID, err := lockMgr.AcquireLock(key, acquireTimeout)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !acquired {
		fmt.Fprintln(cmd.OutOrStdout(), "acquired=false")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "acquired=true, ownerId=%s\n", lockmgr.FormatOwnerID(ownerID))
	return nil
}

// runRelease handles the release lock command
func runRelease(cmd *cobra.Command, args []string) error {
	key := args[0]

	// Convert hex string owner ID back to bytes
	ownerID, err := lockmgr.ParseOwnerID(args[1])
	if err != nil {
		return fmt.Errorf("invalid owner ID format: %w", err)
	}

	// Attempt to release the lock
	released, err := lockMgr.ReleaseLock(key, ownerID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "released=%v\n", released)
	return nil
}
