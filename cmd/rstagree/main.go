// Package main is the rstagree CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rstagree/internal/config"
	"github.com/hyperjump/rstagree/internal/keyword"
	"github.com/hyperjump/rstagree/internal/server"
	"github.com/hyperjump/rstagree/internal/storage"
	"github.com/hyperjump/rstagree/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/rstagree/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory; a missing default file falls back to the
// built-in defaults. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		cfg, err := config.LoadOrDefault(path)
		return cfg, path, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "measure":
		runMeasure()
	case "show":
		runShow()
	case "relations":
		runRelations()
	case "runs":
		runRuns()
	case "server":
		runServer()
	case "watch":
		runWatch()
	case "version", "--version":
		fmt.Printf("rstagree version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// stringList is a repeatable string flag. Values may also be comma separated.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// parseInterspersed parses args allowing flags to appear after positional
// arguments, and returns the positional arguments in order. The flag package
// alone stops at the first non-flag argument.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// flagsSet returns the names of the flags given on the command line.
func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func mustLogger(debug bool) *zap.Logger {
	logger, err := utils.NewCLILogger(debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func openIndex(cfg *config.Config) (*keyword.BleveIndex, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.RelationIndexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	return keyword.NewBleveIndex(cfg.Storage.RelationIndexPath)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	host := fs.String("host", "", "listen host (overrides config)")
	port := fs.Int("port", 0, "listen port (overrides config)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()
	var index keyword.RelationIndex
	if bi, err := openIndex(cfg); err != nil {
		logger.Warn("relation index disabled", zap.Error(err))
	} else {
		defer bi.Close()
		index = bi
	}

	srv := server.NewServer(store, index, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	ctx, stop := signalContext()
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func printUsage() {
	fmt.Print(`rstagree - RST discourse annotation agreement

Usage:
  rstagree <command> [flags] [arguments]

Commands:
  measure [flags] <src_dir> <anno1_dir> <anno2_dir>
                     Measure inter-annotator agreement (Cohen's Kappa)
  show [flags] <source_file> <anno_file>
                     Print the assembled discourse forest of one annotation
  relations [flags] <src_dir> <anno_dir> [relation]
                     List nucleus/satellite pairs of a relation (--index to index them)
  relations --search <query> [--relation name] [--fuzzy]
                     Search indexed relation instances
  runs [list | show <id> | delete <id>]
                     Inspect stored agreement runs
  server [flags]     Start the HTTP API
  watch [flags] <src_dir> <anno1_dir> <anno2_dir>
                     Re-measure agreement whenever annotation files change
  version            Print version
  help               Show this help

Run 'rstagree <command> -h' for the flags of a command.
`)
}
