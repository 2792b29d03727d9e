package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/store"
)

func historyCmd(g *globals) *cobra.Command {
	var (
		show    uint64
		restore uint64
	)
	cmd := &cobra.Command{
		Use:   "history [map]",
		Short: "List, print or restore earlier saves of a map",
		Long: `List the saves the store has retained for a map, newest last.
Only the badger backend keeps history; store.history in the config sets
how many saves are retained.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if show != 0 && restore != 0 {
				return errors.New("--show and --restore are mutually exclusive")
			}
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			log, err := cliLogger(g, p)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			opts := storeOptions(p.cfg, argOrEmpty(args), log)
			provider, closeStore, err := store.Open(ctx, opts)
			if err != nil {
				return err
			}
			defer closeStore()

			hist, ok := store.Unwrap(provider).(store.Historian)
			if !ok {
				return fmt.Errorf("the %s backend keeps no history", backendName(opts.Backend))
			}
			switch {
			case show != 0:
				snap, err := hist.LoadVersion(ctx, show)
				if err != nil {
					return err
				}
				data, err := store.Encode(snap, true)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			case restore != 0:
				snap, err := hist.LoadVersion(ctx, restore)
				if err != nil {
					return err
				}
				if err := provider.Save(ctx, snap); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored version %d (revision %d)\n", restore, snap.Revision)
				return nil
			}
			versions, err := hist.History(ctx)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), versions)
		},
	}
	cmd.Flags().Uint64Var(&show, "show", 0, "Print the saved snapshot with this version number")
	cmd.Flags().Uint64Var(&restore, "restore", 0, "Save the snapshot with this version number as current")
	return cmd
}

func writeHistory(w io.Writer, versions []store.Version) error {
	if len(versions) == 0 {
		_, err := fmt.Fprintln(w, "no saved versions")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tREVISION\tNODES\tEDGES")
	for _, v := range versions {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", v.Seq, v.Revision, v.Nodes, v.Edges)
	}
	return tw.Flush()
}

func mapsCmd(g *globals) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "maps [dir]",
		Short: "List the maps in a directory tree or in the configured store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			backend := p.cfg.Store.Backend
			if backend == "" || backend == store.BackendFile {
				root := argOrEmpty(args)
				if root == "" {
					root = p.root
				}
				if root == "" {
					if root, err = os.Getwd(); err != nil {
						return err
					}
				}
				for _, path := range config.ScanMaps(root, depth) {
					if rel, err := filepath.Rel(root, path); err == nil {
						path = rel
					}
					fmt.Fprintln(out, path)
				}
				return nil
			}

			log, err := cliLogger(g, p)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			provider, closeStore, err := store.Open(ctx, storeOptions(p.cfg, "", log))
			if err != nil {
				return err
			}
			defer closeStore()
			lister, ok := store.Unwrap(provider).(store.Lister)
			if !ok {
				return fmt.Errorf("the %s backend cannot list maps", backend)
			}
			names, err := lister.Maps(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 3, "Directory levels to search with the file backend")
	return cmd
}

func backendName(b string) string {
	if b == "" {
		return store.BackendFile
	}
	return b
}
