package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tern/internal/log"
	"tern/internal/runtime"
	"tern/internal/util"
	"tern/internal/util/future"
	"tern/internal/value"
)

var (
	// Version is stamped at build time via -ldflags.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"

	help     bool
	version  bool
	selftest bool
	// logging
	logLevel string
	logFile  string
	// config vars
	rootPath   string
	configPath string
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.BoolVar(&selftest, "selftest", false, "Run the runtime smoke scenario and exit")
	flag.StringVar(&rootPath, "root", ".", "Set the root context for the runtime")
	flag.StringVar(&configPath, "config", "", "Path to a TOML configuration file")
	flag.StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	flag.Parse()

	log.Init(logLevel, logFile)
	defer log.Close()

	if version {
		printVersion()
		return
	}
	if help {
		printHelp()
		return
	}

	store, err := util.LoadStore(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration '%s': %v\n", configPath, err)
		os.Exit(1)
	}

	config := util.Configuration{
		Version:   Version,
		BuildDate: BuildDate,
		Commit:    Commit,
		RootPath:  rootPath,
		Store:     store,
	}

	rt := runtime.NewRuntime(config)

	if selftest {
		if err := runSelftest(rt); err != nil {
			fmt.Fprintf(os.Stderr, "selftest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("selftest ok")
		return
	}

	printHelp()
}

// runSelftest exercises the spawn/channel/join path end to end: a producer
// task pushes three integers through a capacity-1 channel while the main
// flow drains it, then the join returns the producer's declared result.
func runSelftest(rt *runtime.Runtime) error {
	chVal, rerr := value.NewChannel(1)
	if rerr != nil {
		return rerr
	}
	defer value.Release(chVal)
	ch, _ := chVal.AsChannel()

	producer := value.NewFunction("producer", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		out, err := args[0].AsChannel()
		if err != nil {
			return value.Null(), err
		}
		for i := int64(1); i <= 3; i++ {
			if err := out.Send(value.I64(i)); err != nil {
				return value.Null(), err
			}
		}
		out.Close()
		return value.NewString("done"), nil
	})
	defer value.Release(producer)

	taskVal, rerr := rt.Spawn(producer, chVal)
	if rerr != nil {
		return rerr
	}
	defer value.Release(taskVal)
	task := taskVal.Heap().(*runtime.Task)

	fut := future.New(func() (string, error) {
		want := int64(1)
		for {
			v, ok := ch.Recv()
			if !ok {
				break
			}
			got, err := v.AsInt()
			value.Release(v)
			if err != nil {
				return "", err
			}
			if got != want {
				return "", fmt.Errorf("received %d, want %d", got, want)
			}
			want++
		}
		res, err := task.Join()
		if err != nil {
			return "", err
		}
		defer value.Release(res)
		s, err := res.AsString()
		if err != nil {
			return "", err
		}
		return s.Text, nil
	})

	result, err, ok := fut.AwaitTimeout(5 * time.Second)
	if !ok {
		return fmt.Errorf("pipeline did not settle within 5s")
	}
	if err != nil {
		return err
	}
	if result != "done" {
		return fmt.Errorf("task result %q, want %q", result, "done")
	}
	if !ch.IsClosed() || ch.Len() != 0 {
		return fmt.Errorf("channel should be closed and drained")
	}
	return nil
}

func printVersion() {
	fmt.Printf("tern runtime 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: tern [options]

Options:
  -root <path>       Set the root context for the runtime. Default is '.'
  -config <path>     Load a TOML configuration file.
  -selftest          Run the runtime smoke scenario and exit.
  -help              Display this help information and exit.
  -version           Display version information and exit.
  -log-level <level> Set the log level: debug, info, warn, error. Default is 'error'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.

Details:
This binary hosts the Tern execution runtime: the value model, tasks,
channels and the host function registry that the evaluator and compiled
programs link against.

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}
