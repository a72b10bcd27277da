// Package common holds the configuration and logging setup shared by the store,
// the lock manager and the command line interface.
//
// Logging uses the logger facade of dragonboat (github.com/lni/dragonboat/v4/logger).
// Every package gets its logger once with logger.GetLogger("<name>"); InitLoggers installs
// a factory with the format
//
//	2025/01/02 15:04:05 WARN  | store           | message
//
// and sets the level of all fKV loggers. Log output goes to stderr.
//
// StoreConfig collects everything needed to open a file store. Use DefaultStoreConfig
// to get a config with sane defaults and Validate before use.
package common
