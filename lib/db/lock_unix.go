//go:build unix

package db

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive flock(2) on the open file, blocking until it is available.
// flock is advisory: it only excludes other holders of the same lock, which all fKV processes are.
func lockFile(file *os.File) error {
	return flockRetryEINTR(file, unix.LOCK_EX)
}

// unlockFile releases the lock taken by lockFile.
func unlockFile(file *os.File) error {
	return flockRetryEINTR(file, unix.LOCK_UN)
}

// flockRetryEINTR calls flock and retries as long as the call is interrupted by a signal
func flockRetryEINTR(file *os.File, how int) error {
	for {
		err := unix.Flock(int(file.Fd()), how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
