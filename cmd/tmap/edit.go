package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/logging"
	"github.com/vanderheijden86/topicmap/pkg/metrics"
	"github.com/vanderheijden86/topicmap/pkg/ui"
)

const logFileName = "tmap.log"

func editCmd(g *globals) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Open a map in the terminal editor",
		Long: "Open a map in the terminal editor. The file is created on first save.\n" +
			"Without a file the configured store is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("edit needs an interactive terminal; use export or layout instead")
			}
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			file := argOrEmpty(args)

			// The terminal belongs to the program, so logs go to a file.
			logFile := p.cfg.Log.File
			if logFile == "" {
				dir := p.stateDir()
				if dir == "" {
					dir = config.DirName
				}
				logFile = filepath.Join(dir, logFileName)
			}
			log, err := logging.New(logging.Options{Level: p.cfg.Log.Level, File: logFile})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			m := metrics.New()
			if metricsAddr != "" {
				stop, err := serveMetrics(metricsAddr, m, log)
				if err != nil {
					return err
				}
				defer stop()
			}

			ctx := cmd.Context()
			sess, closeAll, err := openSession(ctx, p, file, log, m)
			if err != nil {
				return err
			}
			defer closeAll()

			title := p.cfg.Store.Name
			if file != "" {
				title = strings.TrimSuffix(filepath.Base(file), config.MapExt)
			}
			return ui.Run(ctx, sess, ui.Options{
				Title:    title,
				StateDir: p.stateDir(),
				Logger:   log,
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. localhost:9464)")
	return cmd
}

// serveMetrics exposes the session registry at /metrics until stop is
// called.
func serveMetrics(addr string, m *metrics.Metrics, log *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
