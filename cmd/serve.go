package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP APIサーバーを起動します",
	Long:  `/download, /cut, /file, /cleanup, /health を提供します。inboxDir が設定されていれば受信フォルダも監視します。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return a.run(ctx, nil)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
