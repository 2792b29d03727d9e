package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/export"
)

type exportFlags struct {
	format string
	out    string
	title  string
	scale  float64
	serve  string
}

func exportCmd(g *globals) *cobra.Command {
	f := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a map as SVG, PNG, HTML or Markdown",
		Long: "Export a map as SVG, PNG, HTML or Markdown.\n\n" +
			"With --serve the map is served as the interactive HTML page and\n" +
			"connected browsers reload whenever the file changes.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			log, err := cliLogger(g, p)
			if err != nil {
				return err
			}
			file := argOrEmpty(args)
			if f.title == "" {
				f.title = mapTitle(file, p.cfg.Store.Name)
			}
			if f.serve != "" {
				if file == "" {
					return errors.New("--serve needs a map file to watch")
				}
				return servePreview(cmd.Context(), g, p, file, f, log)
			}

			format, err := export.ParseFormat(f.format)
			if err != nil {
				return err
			}
			data, err := renderExport(cmd.Context(), p, file, format, f, log)
			if err != nil {
				return err
			}
			if f.out == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			out := f.out
			if out == "" {
				out = export.Filename(f.title, format)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "svg", "Output format: svg, png, html or md")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output file; - for stdout (default: generated from the title)")
	cmd.Flags().StringVar(&f.title, "title", "", "Title for HTML and Markdown output")
	cmd.Flags().Float64Var(&f.scale, "scale", 1, "Pixels per layout unit for SVG and PNG")
	cmd.Flags().StringVar(&f.serve, "serve", "", "Serve a live HTML preview on this address instead of writing a file")
	return cmd
}

func mapTitle(file, fallback string) string {
	if file == "" {
		if fallback == "" {
			return "Topic map"
		}
		return fallback
	}
	return strings.TrimSuffix(filepath.Base(file), config.MapExt)
}

// renderExport loads the map, lays it out and encodes it in format.
func renderExport(ctx context.Context, p project, file string, format export.Format, f *exportFlags, log *zap.Logger) ([]byte, error) {
	sess, closeAll, err := openSession(ctx, p, file, log, nil)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	res, err := sess.LayoutNow(ctx)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	opts := export.DefaultOptions()
	opts.Title = f.title
	opts.Scale = f.scale
	opts.Render.NodeWidth = p.cfg.Layout.NodeWidth
	opts.Render.NodeHeight = p.cfg.Layout.NodeHeight

	var buf bytes.Buffer
	if err := export.Write(&buf, format, sess.View(), res, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// servePreview serves the HTML export of file until ctx is cancelled.
func servePreview(ctx context.Context, g *globals, p project, file string, f *exportFlags, log *zap.Logger) error {
	preview, err := export.NewPreviewServer(file, func() ([]byte, error) {
		// Reload config too, so edits to it show up on refresh.
		fresh, err := loadProject(g)
		if err != nil {
			fresh = p
		}
		return renderExport(ctx, fresh, file, export.FormatHTML, f, log)
	}, log)
	if err != nil {
		return err
	}
	if err := preview.Start(); err != nil {
		return err
	}
	defer preview.Stop()

	ln, err := net.Listen("tcp", f.serve)
	if err != nil {
		return fmt.Errorf("preview listener: %w", err)
	}
	srv := &http.Server{Handler: preview.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	fmt.Fprintf(os.Stderr, "Previewing %s at http://%s/ (Ctrl+C to stop)\n", file, ln.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Live SSE streams never finish on their own.
		preview.Stop()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
