package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mt4110/segcut/internal/logger"
	"github.com/mt4110/segcut/internal/store"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "作業ディレクトリ内の動画ファイルを削除します",
	Long:  `POST /cleanup と同じ処理をサーバーを起動せずに一度だけ実行します。サーバー稼働中は POST /cleanup を使ってください。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.ScratchDir)
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("%s はサーバーが使用中です。POST /cleanup を使ってください", cfg.ScratchDir)
		}
		if err != nil {
			return err
		}
		defer st.Close()

		result := store.NewSweeper(st, logger.WithComponent("cleanup")).Sweep()
		fmt.Printf("🧹 %d ファイルを削除しました (空き容量: %s)\n", result.FilesRemoved, humanize.IBytes(result.FreeSpaceBytes))
		for _, f := range result.Failed {
			fmt.Printf("⚠️  削除できませんでした: %s (%v)\n", f.Path, f.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
