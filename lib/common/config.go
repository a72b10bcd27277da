package common

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultRefreshInterval is the period of the background cache refresher.
const DefaultRefreshInterval = 100 * time.Millisecond

// --------------------------------------------------------------------------
// Store configuration struct
// --------------------------------------------------------------------------

// StoreConfig holds all configuration parameters of a file store.
type StoreConfig struct {
	// Path of the store file, created if missing
	Path string

	// Period of the background cache refresher
	RefreshInterval time.Duration

	// File settings
	Fsync  bool // fsync after every rewrite
	Indent bool // pretty-print the store file

	// Route wait-mode mutations through the write queue instead of applying them directly.
	// They are then ordered after all previously queued mutations.
	OrderedSyncWrites bool

	// Logging configuration
	LogLevel string

	// OnError is called by the write queue for every failed queued mutation that is not
	// a not-found or version conflict (those are discarded). Optional.
	OnError func(err error)
}

// DefaultStoreConfig returns the default configuration for a store file at path.
func DefaultStoreConfig(path string) StoreConfig {
	return StoreConfig{
		Path:            path,
		RefreshInterval: DefaultRefreshInterval,
		LogLevel:        "warn",
	}
}

// Validate checks the configuration for errors.
func (c *StoreConfig) Validate() error {
	if c.Path == "" {
		return errors.New("store path must not be empty")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.RefreshInterval)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *StoreConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Storage
	addSection("Storage")
	addField("Path", c.Path)
	addField("Fsync", fmt.Sprintf("%t", c.Fsync))
	addField("Indent", fmt.Sprintf("%t", c.Indent))

	// Cache & queue
	addSection("Cache & Queue")
	addField("Refresh Interval", c.RefreshInterval.String())
	addField("Ordered Sync Writes", fmt.Sprintf("%t", c.OrderedSyncWrites))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
