package kv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/fKV/cmd/util"
	"github.com/ValentinKolb/fKV/lib/common"
	"github.com/ValentinKolb/fKV/lib/store"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the store",
		Long:    "Runs a set of benchmarks against the store file. All test keys are written to the namespace __perf and removed afterwards.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfNamespace   = "__perf"
	perfKeyPrefix   = "__test"
	perfValueSizeKB = 1
	perfNumThreads  = 4
	perfKeySpread   = 100
	perfSkip        = make([]string, 0)

	perfPercentiles = []float64{0.5, 0.95, 0.99}
)

// perfResult is the outcome of a single benchmark
type perfResult struct {
	bench testing.BenchmarkResult
	timer gometrics.Timer
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get-cache)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of threads to use for the benchmark"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 1, util.WrapString("Size of the values written by the set tests (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfValueSizeKB = viper.GetInt("value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Performance testing tool for fKV")

	// Print configuration
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	conf := util.GetStoreConfig()
	fmt.Fprintln(out, conf.String())
	fmt.Fprintf(out, "Threads: %d\n", perfNumThreads)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "starting tests...")

	value := strings.Repeat("x", perfValueSizeKB*1024)
	ns := store.WithNamespace(perfNamespace)
	wait := store.WithWait()

	tests := []struct {
		name    string
		prepare bool // write all keys before the test
		op      func(key string) error
		after   func() error // part of the timed region
	}{
		{
			name: "set",
			op: func(key string) error {
				_, err := kvStore.Set(key, value, ns)
				return err
			},
			// queued writes only count once they are applied
			after: func() error {
				_, err := kvStore.List(ns, wait)
				return err
			},
		},
		{
			name: "set-wait",
			op: func(key string) error {
				_, err := kvStore.Set(key, value, ns, wait)
				return err
			},
		},
		{
			name:    "get-cache",
			prepare: true,
			op: func(key string) error {
				_, err := kvStore.Get(key, ns)
				return err
			},
		},
		{
			name:    "get-wait",
			prepare: true,
			op: func(key string) error {
				_, err := kvStore.Get(key, ns, wait)
				return err
			},
		},
		{
			name:    "cas",
			prepare: true,
			op: func(key string) error {
				cur, err := kvStore.Get(key, ns, wait)
				if err != nil {
					return err
				}
				_, err = kvStore.Set(key, value, ns, wait, store.WithPrevNode(cur.Node))
				if err != nil && !errors.Is(err, store.ErrVersionConflict) {
					return err
				}
				return nil
			},
		},
		{
			name:    "mixed",
			prepare: true,
			op: func(key string) error {
				var err error
				switch time.Now().UnixNano() % 4 {
				case 0:
					_, err = kvStore.Set(key, value, ns)
				case 1:
					_, err = kvStore.Set(key, value, ns, wait)
				case 2:
					_, err = kvStore.Get(key, ns)
				case 3:
					_, err = kvStore.Get(key, ns, wait)
				}
				return err
			},
		},
	}

	results := make(map[string]perfResult)
	order := make([]string, 0, len(tests))

	for _, tt := range tests {
		order = append(order, tt.name)
		if shouldSkip(tt.name) {
			results[tt.name] = perfResult{timer: gometrics.NewTimer()}
			printResult(cmd, tt.name, results[tt.name])
			continue
		}

		timer := gometrics.NewTimer()
		getKey, iter := getKeys(tt.name)

		if tt.prepare {
			iter(func(k string) {
				if _, err := kvStore.Set(k, value, ns, wait); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "(%s) - error setting key: %v\n", tt.name, err)
				}
			})
		}

		bench := testing.Benchmark(func(b *testing.B) {
			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					start := time.Now()
					if err := tt.op(getKey(counter)); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "(%s) - error: %v\n", tt.name, err)
					}
					timer.UpdateSince(start)
					counter++
				}
			})

			if tt.after != nil {
				if err := tt.after(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "(%s) - error: %v\n", tt.name, err)
				}
			}
		})

		// cleanup
		iter(func(k string) {
			if _, err := kvStore.Delete(k, ns, wait); err != nil && !errors.Is(err, store.ErrNotFound) {
				fmt.Fprintf(cmd.ErrOrStderr(), "(%s) - error deleting key: %v\n", tt.name, err)
			}
		})

		results[tt.name] = perfResult{bench: bench, timer: timer}
		printResult(cmd, tt.name, results[tt.name])
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, order, results, conf); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Fprintln(out, "Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// opsPerSec derives the throughput of a benchmark result
func opsPerSec(result testing.BenchmarkResult) (float64, float64) {
	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	return nsPerOp, 1.0 / (nsPerOp / 1e9)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(cmd *cobra.Command, test string, result perfResult) {
	out := cmd.OutOrStdout()
	if result.bench.NsPerOp() == 0 {
		fmt.Fprintf(out, "%-12sskipped\n", test)
		return
	}

	nsPerOp, ops := opsPerSec(result.bench)
	ps := result.timer.Percentiles(perfPercentiles)

	fmt.Fprintf(out, "%-12s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), ops,
		time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, order []string, results map[string]perfResult, conf common.StoreConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P95Ns", "P99Ns", "Skipped",
		"Path", "RefreshIntervalMs", "Fsync", "OrderedSyncWrites",
		"Threads", "ValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, test := range order {
		result := results[test]

		var nsPerOp, ops float64
		skipped := "true"
		if result.bench.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp, ops = opsPerSec(result.bench)
		}
		ps := result.timer.Percentiles(perfPercentiles)

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", ops),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			skipped,
			conf.Path,
			strconv.FormatInt(conf.RefreshInterval.Milliseconds(), 10),
			strconv.FormatBool(conf.Fsync),
			strconv.FormatBool(conf.OrderedSyncWrites),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
