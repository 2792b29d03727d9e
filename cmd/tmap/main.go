// Command tmap edits topic maps in the terminal and exports them to SVG,
// PNG, HTML and Markdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/logging"
	"github.com/vanderheijden86/topicmap/pkg/metrics"
	"github.com/vanderheijden86/topicmap/pkg/session"
	"github.com/vanderheijden86/topicmap/pkg/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	backend    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "tmap",
		Short:         "Map topics, problems and claims as a diagram",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("tmap {{ .Version }}\n")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default: .tmap/config.yaml in the project root)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&g.backend, "backend", "", "Override the store backend: file, sqlite, badger or redis")

	root.AddCommand(
		editCmd(g),
		layoutCmd(g),
		exportCmd(g),
		initCmd(g),
		validateCmd(g),
		statsCmd(g),
		historyCmd(g),
		mapsCmd(g),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tmap %s\n", version)
		},
	}
}

// project is the resolved configuration for one invocation.
type project struct {
	cfg  config.Config
	root string // directory holding .tmap/, or "" outside a project
}

func (p project) stateDir() string {
	if p.root == "" {
		return ""
	}
	return filepath.Join(p.root, config.DirName)
}

func loadProject(g *globals) (project, error) {
	var (
		p   project
		err error
	)
	if g.configPath != "" {
		p.cfg, err = config.Load(g.configPath)
		p.root = filepath.Dir(filepath.Dir(g.configPath))
	} else {
		cwd, _ := os.Getwd()
		p.cfg, p.root, err = config.Discover(cwd)
	}
	if err != nil {
		return p, err
	}
	if g.logLevel != "" {
		p.cfg.Log.Level = g.logLevel
	}
	if g.backend != "" {
		p.cfg.Store.Backend = g.backend
	}
	return p, p.cfg.Validate()
}

// storeOptions points the configured backend at file. For the file backend
// file is the map path; other backends use it as the map name when their
// DSN is configured.
func storeOptions(cfg config.Config, file string, log *zap.Logger) store.Options {
	opts := store.Options{
		Backend: cfg.Store.Backend,
		DSN:     cfg.Store.DSN,
		Name:    cfg.Store.Name,
		Breaker: cfg.Store.Breaker,
		History: cfg.Store.History,
		Logger:  log,
	}
	switch {
	case file == "":
	case opts.Backend == "" || opts.Backend == store.BackendFile:
		opts.DSN = file
	case opts.Name == "":
		opts.Name = file
	}
	return opts
}

// openSession loads file through the configured store. The returned close
// function closes the session and then the store.
func openSession(ctx context.Context, p project, file string, log *zap.Logger, m *metrics.Metrics) (*session.Session, func(), error) {
	opts := storeOptions(p.cfg, file, log)
	if (opts.Backend == "" || opts.Backend == store.BackendFile) && opts.DSN == "" {
		return nil, nil, errors.New("no map file given and no store configured")
	}
	provider, closeStore, err := store.Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.Open(ctx, session.Options{
		Provider: provider,
		Config:   p.cfg,
		Logger:   log,
		Metrics:  m,
	})
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return sess, func() {
		_ = sess.Close()
		if err := closeStore(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}, nil
}

// cliLogger logs to stderr for the non-interactive commands. Only
// warnings show unless --log-level asks for more.
func cliLogger(g *globals, p project) (*zap.Logger, error) {
	level := g.logLevel
	if level == "" {
		level = "warn"
	}
	return logging.New(logging.Options{Level: level, Dev: true, File: p.cfg.Log.File})
}

func argOrEmpty(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
