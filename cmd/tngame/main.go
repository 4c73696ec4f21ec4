package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/lixenwraith/tngame/config"
	"github.com/lixenwraith/tngame/logging"
)

// EnvPrefix namespaces environment overrides, e.g. TNGAME_LISTEN
const EnvPrefix = "TNGAME"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildCLI().ParseAndRun(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "tngame: %v\n", err)
		os.Exit(1)
	}
}

// serverFlags are shared by serve and relay; explicitly set flags override the config file
type serverFlags struct {
	configPath  string
	listen      string
	wsListen    string
	maxSessions int
	debug       bool
	greeting    string
	journalDir  string
	indexPath   string
	logDir      string
	command     string
}

func (f *serverFlags) register(fs *flag.FlagSet, withCommand bool) {
	def := config.Default()
	fs.StringVar(&f.configPath, "config", "", "yaml config file")
	fs.StringVar(&f.listen, "listen", def.Listen, "telnet listen address")
	fs.StringVar(&f.wsListen, "ws-listen", "", "websocket listen address (empty disables)")
	fs.IntVar(&f.maxSessions, "max-sessions", def.MaxSessions, "concurrent session limit")
	fs.BoolVar(&f.debug, "debug", false, "debug logging")
	fs.StringVar(&f.greeting, "greeting", "", "speech bubble text above the actor")
	fs.StringVar(&f.journalDir, "journal-dir", "", "directory for compressed session journals (empty disables)")
	fs.StringVar(&f.indexPath, "index", "", "sqlite session index path (empty disables)")
	fs.StringVar(&f.logDir, "log-dir", "", "directory for the log file (empty logs to stderr only)")
	if withCommand {
		fs.StringVar(&f.command, "command", "", "child command line (empty runs the built-in child)")
	}
}

// load reads the config file and applies every flag that was set on the command line or environment
func (f *serverFlags) load(fs *flag.FlagSet, mode string) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode
	if debug, ok := debugFromEnv(); ok {
		cfg.Debug = debug
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "listen":
			cfg.Listen = f.listen
		case "ws-listen":
			cfg.WSListen = f.wsListen
		case "max-sessions":
			cfg.MaxSessions = f.maxSessions
		case "debug":
			cfg.Debug = f.debug
		case "greeting":
			cfg.Greeting = f.greeting
		case "journal-dir":
			cfg.JournalDir = f.journalDir
		case "index":
			cfg.IndexPath = f.indexPath
		case "log-dir":
			cfg.LogDir = f.logDir
		case "command":
			fields := strings.Fields(f.command)
			if len(fields) > 0 {
				cfg.Relay.Command, cfg.Relay.Args = fields[0], fields[1:]
			}
		}
	})
	return cfg, cfg.Validate()
}

// debugFromEnv reads the bare DEBUG variable; any true/false spelling strconv accepts counts
func debugFromEnv() (bool, bool) {
	v, ok := os.LookupEnv("DEBUG")
	if !ok || v == "" {
		return false, false
	}
	debug, err := strconv.ParseBool(v)
	if err != nil {
		return true, true // DEBUG=yes and friends
	}
	return debug, true
}

func buildCLI() *ffcli.Command {
	options := []ff.Option{ff.WithEnvVarPrefix(EnvPrefix)}

	var serveFlags serverFlags
	serveFS := flag.NewFlagSet("tngame serve", flag.ContinueOnError)
	serveFlags.register(serveFS, false)
	serveCmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "tngame serve [flags]",
		ShortHelp:  "Serve the falling-snow scene over telnet",
		FlagSet:    serveFS,
		Options:    options,
		Exec: func(ctx context.Context, _ []string) error {
			cfg, err := serveFlags.load(serveFS, config.ModeScene)
			if err != nil {
				return err
			}
			return runServer(ctx, cfg)
		},
	}

	var relayFlags serverFlags
	relayFS := flag.NewFlagSet("tngame relay", flag.ContinueOnError)
	relayFlags.register(relayFS, true)
	relayCmd := &ffcli.Command{
		Name:       "relay",
		ShortUsage: "tngame relay [flags]",
		ShortHelp:  "Relay each connection to a child process framed by NUL sentinels",
		FlagSet:    relayFS,
		Options:    options,
		Exec: func(ctx context.Context, _ []string) error {
			cfg, err := relayFlags.load(relayFS, config.ModeRelay)
			if err != nil {
				return err
			}
			return runServer(ctx, cfg)
		},
	}

	childFS := flag.NewFlagSet("tngame child", flag.ContinueOnError)
	childConfig := childFS.String("config", "", "yaml config file for scene content")
	childCmd := &ffcli.Command{
		Name:       "child",
		ShortUsage: "tngame child",
		ShortHelp:  "Render the scene to stdout as sentinel-framed output for relay mode",
		FlagSet:    childFS,
		Options:    options,
		Exec: func(ctx context.Context, _ []string) error {
			cfg, err := config.Load(*childConfig)
			if err != nil {
				return err
			}
			return runChild(ctx, cfg, os.Stdin, os.Stdout)
		},
	}

	previewFS := flag.NewFlagSet("tngame preview", flag.ContinueOnError)
	previewConfig := previewFS.String("config", "", "yaml config file for scene content")
	previewCmd := &ffcli.Command{
		Name:       "preview",
		ShortUsage: "tngame preview",
		ShortHelp:  "Show the scene in the local terminal",
		FlagSet:    previewFS,
		Options:    options,
		Exec: func(ctx context.Context, _ []string) error {
			cfg, err := config.Load(*previewConfig)
			if err != nil {
				return err
			}
			return runPreview(ctx, cfg)
		},
	}

	root := &ffcli.Command{
		ShortUsage:  "tngame <subcommand> [flags]",
		ShortHelp:   "Terminal snow scene server",
		LongHelp:    "Controls:\n  Left/Right  Move the actor\n  q, ESC, ^C  Leave",
		FlagSet:     flag.NewFlagSet("tngame", flag.ContinueOnError),
		Subcommands: []*ffcli.Command{serveCmd, relayCmd, childCmd, previewCmd},
	}
	root.Exec = func(context.Context, []string) error {
		fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
		return flag.ErrHelp
	}
	return root
}

// setupLogging logs to stderr and, when dir is set, to a rotated file in dir as well
func setupLogging(cfg config.Config) (*logging.Logger, io.Closer, error) {
	if cfg.LogDir == "" {
		return logging.New(os.Stderr, "", cfg.Debug), nil, nil
	}
	f, err := logging.OpenFile(cfg.LogDir)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(io.MultiWriter(os.Stderr, f), "", cfg.Debug), f, nil
}
