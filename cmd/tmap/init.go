package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/ui"
)

func initCmd(g *globals) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create .tmap/ with a config file and ignore it in git",
		Long: "Create .tmap/ with a config file and add it to .gitignore.\n" +
			"On a terminal a short form asks for the store and editing defaults;\n" +
			"--yes writes the defaults without asking.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := argOrEmpty(args)
			if dir == "" {
				var err error
				if dir, err = os.Getwd(); err != nil {
					return err
				}
			}

			defaults := config.Default()
			if g.backend != "" {
				defaults.Store.Backend = g.backend
			}

			interactive := !yes && term.IsTerminal(int(os.Stdin.Fd()))
			if !interactive {
				path, err := config.Init(dir, defaults)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", path)
				return nil
			}

			cfg := defaults
			path := config.ConfigPath(dir)
			if _, err := os.Stat(path); err == nil {
				if cfg, err = config.Load(path); err != nil {
					return err
				}
			}
			ans := ui.AnswersFrom(cfg)
			if err := ui.NewInitForm(&ans, cfg.Registry()).Run(); err != nil {
				return err
			}
			return writeConfig(cmd, dir, ans.Apply(cfg))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Write the default config without prompting")
	return cmd
}

// writeConfig validates and saves cfg under dir/.tmap, replacing any
// existing config file.
func writeConfig(cmd *cobra.Command, dir string, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := config.ConfigPath(dir)
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	if err := config.EnsureIgnored(dir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
