package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	transmission "github.com/jfxdev/go-transmission"
)

const usage = `usage: trctl [-config file.toml] [-debug] <command> [args]

commands:
  add <url|magnet> [download-dir]   add a torrent
  get [id...]                       list torrents (all when no id is given)
  remove [-data] <id...>            remove torrents, optionally with their data
  start|stop|verify <id...>         torrent actions
  session [key...]                  show session settings
  stats                             show session statistics
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "trctl: %v\n", err)
		os.Exit(1)
	}
}

func initLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "trctl").Logger().Level(level)
	log.Logger = logger
	return logger
}

// loadConfig reads TRANSMISSION_* variables, then lets the TOML file override them.
func loadConfig(path string) (transmission.Config, error) {
	cfg, err := transmission.ConfigFromEnv()
	if err != nil {
		return transmission.Config{}, err
	}
	if path == "" {
		return cfg, nil
	}

	fileCfg, err := transmission.LoadConfigFile(path)
	if err != nil {
		return transmission.Config{}, err
	}
	return mergeConfig(cfg, fileCfg), nil
}

func mergeConfig(base, override transmission.Config) transmission.Config {
	if override.Host != "" {
		base.Host = override.Host
	}
	if override.Port != 0 {
		base.Port = override.Port
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.Username != "" {
		base.Username = override.Username
		base.Password = override.Password
	}
	if override.Debug {
		base.Debug = true
	}
	if len(override.Fields) > 0 {
		base.Fields = override.Fields
	}
	if override.SessionHeader != "" {
		base.SessionHeader = override.SessionHeader
	}
	if override.RequestTimeout > 0 {
		base.RequestTimeout = override.RequestTimeout
	}
	if override.RateLimit > 0 {
		base.RateLimit = override.RateLimit
		base.RateBurst = override.RateBurst
	}
	return base
}

func run(args []string) error {
	fs := flag.NewFlagSet("trctl", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := fs.String("config", "", "path to a TOML config file")
	debug := fs.Bool("debug", false, "log every RPC call")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.Debug = cfg.Debug || *debug

	logger := initLogger(cfg.Debug)
	cfg.Logger = &logger

	client, err := transmission.New(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := dispatch(ctx, client, fs.Arg(0), fs.Args()[1:])
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func dispatch(ctx context.Context, client *transmission.Client, command string, args []string) (any, error) {
	switch command {
	case "add":
		if len(args) == 0 {
			return nil, fmt.Errorf("add: missing url")
		}
		options := transmission.Arguments{}
		if len(args) > 1 {
			options["download-dir"] = args[1]
		}
		added, err := client.Add(ctx, args[0], options)
		if transmission.IsDuplicateTorrent(err) {
			log.Info().Str("url", args[0]).Msg("torrent already present")
			return nil, nil
		}
		return added, err

	case "get":
		ids, err := parseIDs(args)
		if err != nil {
			return nil, err
		}
		var sel any
		if len(ids) > 0 {
			sel = ids
		}
		return client.Get(ctx, sel, []string{"id", "name", "status", "percentDone", "rateDownload", "rateUpload", "eta"})

	case "remove":
		deleteData := false
		if len(args) > 0 && args[0] == "-data" {
			deleteData = true
			args = args[1:]
		}
		ids, err := parseIDs(args)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("remove: missing ids")
		}
		return nil, client.Delete(ctx, ids, deleteData)

	case "start", "stop", "verify":
		ids, err := parseIDs(args)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%s: missing ids", command)
		}
		switch command {
		case "start":
			return nil, client.Start(ctx, ids)
		case "stop":
			return nil, client.Stop(ctx, ids)
		default:
			return nil, client.Verify(ctx, ids)
		}

	case "session":
		return client.GetSession(ctx, args...)

	case "stats":
		return client.SessionStats(ctx)

	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

// parseIDs accepts numeric ids and info hashes.
func parseIDs(args []string) ([]any, error) {
	ids := make([]any, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
			ids = append(ids, n)
			continue
		}
		if len(arg) != 40 {
			return nil, fmt.Errorf("invalid torrent id %q", arg)
		}
		ids = append(ids, strings.ToLower(arg))
	}
	return ids, nil
}
