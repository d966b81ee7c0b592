package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mt4110/segcut/internal/config"
)

var flagInitForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "初期セットアップを行います",
	Long:  `デフォルト設定ファイル(~/.config/segcut/config.yaml)と作業ディレクトリを作成します。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return fmt.Errorf("ホームディレクトリの取得に失敗: %w", err)
		}
		written, err := writeDefaultConfig(path, flagInitForce)
		if err != nil {
			return err
		}
		if written {
			fmt.Printf("✅ 設定ファイルを作成: %s\n", path)
		} else {
			fmt.Printf("ℹ️ 設定ファイルは既にあります (上書きは --force): %s\n", path)
		}

		if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
			return fmt.Errorf("作業ディレクトリ作成失敗: %w", err)
		}
		fmt.Printf("✅ 作業ディレクトリを確認: %s\n", cfg.ScratchDir)
		return nil
	},
}

// writeDefaultConfig writes the defaults to path unless a file is already
// there and force is false.
func writeDefaultConfig(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	data, err := config.NewDefault().Encode()
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("設定ファイルの書き込みに失敗: %w", err)
	}
	return true, nil
}

func init() {
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "既存の設定ファイルを上書きする")
	rootCmd.AddCommand(initCmd)
}
