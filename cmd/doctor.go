package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mt4110/segcut/internal/config"
	"github.com/mt4110/segcut/internal/store"
	"github.com/mt4110/segcut/internal/updater"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "環境の診断を行います",
	Long:  `ffmpeg と yt-dlp のインストール状況、作業ディレクトリの書き込み権限、設定ファイルの状態をチェックします。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("🏥 環境診断を開始します...")
		hasError := false

		// 1. External tools
		for _, st := range updater.NewChecker().Check(cmd.Context(), updater.Tools(cfg.FFmpegBin, cfg.YtdlpBin)) {
			if !st.OK() {
				fmt.Printf("❌ %s が見つかりません (%s)。インストール: %s\n", st.Tool.Name, st.Tool.Bin, st.Tool.InstallHint)
				hasError = true
				continue
			}
			fmt.Printf("✅ %s found: %s\n", st.Tool.Name, st.Path)
			if st.Version != "" {
				fmt.Printf("   Version: %s\n", st.Version)
			}
		}

		// 2. Scratch directory
		if err := checkWritable(cfg.ScratchDir); err != nil {
			fmt.Printf("❌ 作業ディレクトリ (%s) に書き込めません: %v\n", cfg.ScratchDir, err)
			hasError = true
		} else {
			fmt.Printf("✅ 作業ディレクトリ OK: %s\n", cfg.ScratchDir)
			st, err := store.Open(cfg.ScratchDir)
			switch {
			case errors.Is(err, store.ErrLocked):
				fmt.Println("ℹ️ 作業ディレクトリは稼働中のサーバーが使用しています")
			case err != nil:
				fmt.Printf("⚠️ 作業ディレクトリを開けません: %v\n", err)
			default:
				if free, err := st.FreeSpaceBytes(); err == nil {
					fmt.Printf("   空き容量: %s\n", humanize.IBytes(free))
				}
				st.Close()
			}
		}

		// 3. Config file
		if path, err := config.Path(); err == nil {
			if _, err := os.Stat(path); err != nil {
				fmt.Printf("ℹ️ 設定ファイルは見つかりませんでした (デフォルト値を使用): %s\n", path)
			} else {
				fmt.Printf("✅ 設定ファイル: %s\n", path)
			}
		}

		// 4. Inbox
		if cfg.InboxDir != "" {
			if info, err := os.Stat(cfg.InboxDir); err != nil || !info.IsDir() {
				fmt.Printf("⚠️ 受信フォルダがありません (起動時に作成されます): %s\n", cfg.InboxDir)
			} else {
				fmt.Printf("✅ 受信フォルダ: %s\n", cfg.InboxDir)
			}
		}

		if hasError {
			fmt.Println("\n❌ いくつかの問題が見つかりました。修正してください。")
			return errors.New("doctor found problems")
		}
		fmt.Println("\n✅ 診断完了: 概ね問題なさそうです！")
		return nil
	},
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".segcut-write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
