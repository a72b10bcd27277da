package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/fKV/lib/common"
	"github.com/ValentinKolb/fKV/lib/store/fstore"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var log = logger.GetLogger("cli")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetupStoreFlags adds the flags needed to open a store to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "path"
	cmd.PersistentFlags().String(key, "fkv.json", WrapString("Path of the store file, it is created if it does not exist"))

	key = "refresh-interval"
	cmd.PersistentFlags().Int(key, int(common.DefaultRefreshInterval/time.Millisecond), WrapString("Interval of the background cache refresh in milliseconds"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error, off)"))

	key = "fsync"
	cmd.PersistentFlags().Bool(key, false, WrapString("Fsync the store file after every write"))

	key = "indent"
	cmd.PersistentFlags().Bool(key, false, WrapString("Pretty-print the store file"))

	key = "ordered-sync-writes"
	cmd.PersistentFlags().Bool(key, false, WrapString("Apply waiting writes through the write queue, after all previously queued writes"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print the store metrics in Prometheus format to stderr on exit"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("fkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetStoreConfig reads the store configuration from viper
func GetStoreConfig() common.StoreConfig {
	conf := common.DefaultStoreConfig(viper.GetString("path"))
	conf.RefreshInterval = time.Duration(viper.GetInt("refresh-interval")) * time.Millisecond
	conf.LogLevel = viper.GetString("log-level")
	conf.Fsync = viper.GetBool("fsync")
	conf.Indent = viper.GetBool("indent")
	conf.OrderedSyncWrites = viper.GetBool("ordered-sync-writes")
	conf.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "queued write failed: %v\n", err)
	}
	return conf
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return BindFlagSet(cmd.Flags())
}

// BindFlagSet binds all flags of fs to viper
func BindFlagSet(fs *pflag.FlagSet) error {
	return viper.BindPFlags(fs)
}

// --------------------------------------------------------------------------
// Store lifecycle
// --------------------------------------------------------------------------

var (
	openMu     sync.Mutex
	openStores []*fstore.Store
)

// OpenStore opens the store configured through flags and environment.
// Stores opened this way are closed by Shutdown.
func OpenStore() (*fstore.Store, error) {
	conf := GetStoreConfig()
	s, err := fstore.Open(conf)
	if err != nil {
		return nil, err
	}
	log.Debugf("using store config:%s", conf.String())

	openMu.Lock()
	openStores = append(openStores, s)
	openMu.Unlock()
	return s, nil
}

// Shutdown closes every store opened with OpenStore. Queued writes are applied before it returns.
func Shutdown() {
	openMu.Lock()
	defer openMu.Unlock()

	for _, s := range openStores {
		if err := s.Close(); err != nil {
			log.Errorf("closing store %s: %v", s.Path(), err)
		}
		if viper.GetBool("metrics") {
			s.WriteMetrics(os.Stderr)
		}
	}
	openStores = nil
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// PrintJSON writes v as indented json to w
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ParseValue interprets a command line value: valid json is used as is, anything else is a string
func ParseValue(arg string) any {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}
