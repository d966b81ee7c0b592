package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mt4110/segcut/internal/logger"
	"github.com/mt4110/segcut/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "TUIモードでサーバーと受信フォルダの状況を表示します (Interactive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Console logging would corrupt the TUI.
		logger.MuteStdout()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		events := make(chan any, 100)
		done := make(chan error, 1)
		go func() { done <- a.run(ctx, events) }()

		m := tui.NewModel(cfg.Addr(), cfg.InboxDir, events, a.service.Sweep)
		p := tea.NewProgram(m, tea.WithAltScreen())
		go func() {
			// A server failure ends the TUI as well.
			select {
			case err := <-done:
				done <- err
				p.Quit()
			case <-ctx.Done():
			}
		}()

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		cancel()
		return <-done
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
