package main

import (
	"github.com/spf13/cobra"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive terminal UI",
		Long: `Launch the interactive terminal UI with Search, Insert and Settings tabs.

Controls:
  Tab / Shift+Tab - Switch tab
  Enter           - Submit
  Ctrl+N          - Add a metadata row (Insert tab)
  Ctrl+C          - Quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context(), a.orch, a.overrides, a.settings.Connection())
		},
	}
}
