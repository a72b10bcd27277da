package kv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ValentinKolb/fKV/cmd/util"
	"github.com/ValentinKolb/fKV/lib/store"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell for the store",
		Long:  "Starts an interactive shell. Type help for a list of commands.",
		Args:  cobra.NoArgs,
		RunE:  runShell,
	}

	shellVerbs = []string{"get", "list", "set", "cas", "del", "cad", "use", "wait", "flush", "help", "exit"}
)

const shellHelp = `commands:
  get <key>                  read a key
  list                       list all keys of the current namespace
  set <key> <value>          set a key
  cas <key> <version> <val>  set a key if it has version (0 = must not exist)
  del <key>                  delete a key
  cad <key> <version>        delete a key if it has version
  use [namespace]            switch namespace (none = root space)
  wait on|off                toggle wait mode
  flush                      delete everything
  exit                       leave the shell
`

func runShell(cmd *cobra.Command, _ []string) error {
	sess := &session{
		store:     kvStore,
		namespace: viper.GetString("namespace"),
		wait:      viper.GetBool("wait"),
		out:       cmd.OutOrStdout(),
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) (c []string) {
		for _, verb := range shellVerbs {
			if strings.HasPrefix(verb, strings.ToLower(input)) {
				c = append(c, verb)
			}
		}
		return
	})

	if path := historyPath(); path != "" {
		if f, err := os.Open(path); err == nil {
			_, _ = line.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(path); err == nil {
				_, _ = line.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	fmt.Fprintf(sess.out, "connected to %s, type help for a list of commands\n", kvStore.Path())
	for {
		input, err := line.Prompt(sess.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		quit, err := sess.exec(input)
		if err != nil {
			fmt.Fprintf(sess.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".fkv_history")
}

// --------------------------------------------------------------------------
// Shell Session
// --------------------------------------------------------------------------

// session holds the state of an interactive shell
type session struct {
	store     store.IStore
	namespace string
	wait      bool
	out       io.Writer
}

func (s *session) prompt() string {
	if s.namespace == "" {
		return "fkv> "
	}
	return fmt.Sprintf("fkv[%s]> ", s.namespace)
}

func (s *session) options(extra ...store.Option) []store.Option {
	opts := []store.Option{store.WithNamespace(s.namespace)}
	if s.wait {
		opts = append(opts, store.WithWait())
	}
	return append(opts, extra...)
}

// exec runs a single shell command. It returns true if the shell should exit.
func (s *session) exec(input string) (bool, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(input), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "exit", "quit":
		return true, nil

	case "help":
		fmt.Fprint(s.out, shellHelp)
		return false, nil

	case "use":
		s.namespace = rest
		return false, nil

	case "wait":
		switch rest {
		case "on":
			s.wait = true
		case "off":
			s.wait = false
		default:
			return false, fmt.Errorf("usage: wait on|off")
		}
		return false, nil

	case "get":
		if rest == "" {
			return false, fmt.Errorf("usage: get <key>")
		}
		res, err := s.store.Get(rest, s.options()...)
		if err != nil {
			return false, err
		}
		return false, util.PrintJSON(s.out, res)

	case "list":
		results, err := s.store.List(s.options()...)
		if err != nil {
			return false, err
		}
		return false, util.PrintJSON(s.out, results)

	case "set":
		key, value, ok := strings.Cut(rest, " ")
		if !ok || key == "" {
			return false, fmt.Errorf("usage: set <key> <value>")
		}
		return false, s.write(s.store.Set(key, util.ParseValue(strings.TrimSpace(value)), s.options()...))

	case "cas":
		fields := strings.SplitN(rest, " ", 3)
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: cas <key> <version> <value>")
		}
		cond, err := versionCondition(fields[1])
		if err != nil {
			return false, err
		}
		return false, s.write(s.store.Set(fields[0], util.ParseValue(strings.TrimSpace(fields[2])), s.options(cond)...))

	case "del":
		if rest == "" {
			return false, fmt.Errorf("usage: del <key>")
		}
		return false, s.write(s.store.Delete(rest, s.options()...))

	case "cad":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: cad <key> <version>")
		}
		cond, err := versionCondition(fields[1])
		if err != nil {
			return false, err
		}
		return false, s.write(s.store.Delete(fields[0], s.options(cond)...))

	case "flush":
		if err := s.store.Flush(); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "flushed")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q, type help for a list of commands", verb)
	}
}

func (s *session) write(res store.Result, err error) error {
	if err != nil {
		return err
	}
	return util.PrintJSON(s.out, res)
}

func versionCondition(arg string) (store.Option, error) {
	version, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("version must be a number: %w", err)
	}
	if version == 0 {
		return store.WithPrevAbsent(), nil
	}
	return store.WithPrevNode(&store.Record{Version: version}), nil
}
