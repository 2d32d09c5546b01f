package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"trainops-supervisor/internal/tailview"
)

var (
	tailFollow  bool
	tailShowSeq bool
)

var tailCmd = &cobra.Command{
	Use:   "tail <mirror-file>",
	Short: "View a mirror file in the terminal",
	Long: "tail renders a recorded mirror file, or follows one that is still " +
		"being written, for debugging a packaged image locally.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("tail needs a terminal; use replay --print-only for plain output")
		}
		return tailview.New(args[0], tailFollow, tailShowSeq).Run()
	},
}

func init() {
	tailCmd.Flags().BoolVarP(&tailFollow, "follow", "f", false, "Keep polling for new chunks until the run finishes")
	tailCmd.Flags().BoolVar(&tailShowSeq, "seq", false, "Show sequence numbers")
}
