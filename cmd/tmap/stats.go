package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/topicmap/pkg/analysis"
)

func statsCmd(g *globals) *cobra.Command {
	var (
		asJSON bool
		top    int
	)
	cmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "Summarise hubs, contested claims and argument cycles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			log, err := cliLogger(g, p)
			if err != nil {
				return err
			}
			sess, closeAll, err := openSession(cmd.Context(), p, argOrEmpty(args), log, nil)
			if err != nil {
				return err
			}
			defer closeAll()

			cfg := analysis.DefaultConfig()
			if top > 0 {
				cfg.HubLimit = top
			}
			in := analysis.Analyze(sess.View(), cfg)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(in)
			}
			writeStats(cmd.OutOrStdout(), in)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print insights as JSON")
	cmd.Flags().IntVar(&top, "top", 0, "Number of hubs to list")
	return cmd
}

func writeStats(w io.Writer, in *analysis.Insights) {
	fmt.Fprintf(w, "%d nodes, %d edges, %d trees (betweenness: %s)\n", in.Nodes, in.Edges, in.Trees, in.Mode)

	if len(in.Hubs) > 0 {
		fmt.Fprintln(w, "\nHubs")
		for _, h := range in.Hubs {
			fmt.Fprintf(w, "  %-10s %-9s %-30s in %d out %d  betweenness %.2f\n",
				h.ID, h.Kind, truncate(h.Label, 30), h.In, h.Out, h.Betweenness)
		}
	}
	if len(in.Contested) > 0 {
		fmt.Fprintln(w, "\nContested")
		for _, c := range in.Contested {
			fmt.Fprintf(w, "  %-10s %-30s +%d -%d\n", c.ID, truncate(c.Label, 30), c.Supports, c.Opposes)
		}
	}
	if len(in.Unsupported) > 0 {
		fmt.Fprintf(w, "\nUnsupported claims: %s\n", strings.Join(in.Unsupported, ", "))
	}
	if len(in.Isolated) > 0 {
		fmt.Fprintf(w, "Isolated: %s\n", strings.Join(in.Isolated, ", "))
	}
	if len(in.Cycles) > 0 {
		fmt.Fprintln(w, "\nCycles")
		for i, c := range in.Cycles {
			fmt.Fprintf(w, "  %d. %s -> %s\n", i+1, strings.Join(c, " -> "), c[0])
		}
		if in.CyclesCapped {
			fmt.Fprintln(w, "  ...")
		}
		fmt.Fprintln(w, "\nBreak candidates")
		for _, b := range in.CycleBreaks {
			fmt.Fprintf(w, "  %-10s %s %s %s (%d cycles)\n", b.EdgeID, b.Source, b.Relation, b.Target, b.Impact)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
