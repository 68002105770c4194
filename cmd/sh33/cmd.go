package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sh33/internal/config"
	"sh33/internal/shell"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "sh33",
		Short:         "A small job-control shell",
		Long:          "sh33 reads one command per line and runs it in the foreground, or in the background when the line ends in \"&\".",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return fmt.Errorf("error locating config: %w", err)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			s, err := shell.New(cfg)
			if err != nil {
				return fmt.Errorf("error initializing shell: %w", err)
			}
			return s.Run()
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
