package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mt4110/segcut/internal/config"
	"github.com/mt4110/segcut/internal/logger"
	"github.com/mt4110/segcut/internal/updater"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "segcut",
	Short: "動画をURLから取得し、一定の長さに分割するAPIサーバー",
	Long: `yt-dlp で動画を取得し、長さ(5〜600秒)を検証してから ffmpeg で固定長のセグメントに分割します。
サブコマンドなしで実行すると serve と同じ動作になります。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "設定ファイルの読み込みに失敗しました (デフォルト値を使用します): %v\n", err)
			loadedCfg = config.NewDefault()
		}
		cfg = loadedCfg

		// Flags win over the config file and the environment.
		updateConfigFromFlags(cmd, cfg)

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger.Setup(cfg.LogFile, cfg.LogLevel)

		if cmd.Name() != "doctor" && cmd.Name() != "init" && cmd.Name() != "version" {
			updater.Warn(logger.WithComponent("updater"), updater.NewChecker().Check(cmd.Context(), updater.Tools(cfg.FFmpegBin, cfg.YtdlpBin)))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var (
	flagHost           string
	flagPort           int
	flagScratchDir     string
	flagFFmpegBin      string
	flagYtdlpBin       string
	flagPublicBaseURL  string
	flagLogFile        string
	flagLogLevel       string
	flagInbox          string
	flagKeywords       []string
	flagIgnoreKeywords []string
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagHost, "host", "", "待ち受けホスト (空なら全インターフェース)")
	flags.IntVar(&flagPort, "port", 0, "待ち受けポート (環境変数 PORT より優先)")
	flags.StringVar(&flagScratchDir, "scratch-dir", "", "作業ディレクトリ")
	flags.StringVar(&flagFFmpegBin, "ffmpeg-bin", "", "ffmpegのバイナリパスを明示的に指定する")
	flags.StringVar(&flagYtdlpBin, "ytdlp-bin", "", "yt-dlpのバイナリパスを明示的に指定する")
	flags.StringVar(&flagPublicBaseURL, "public-base-url", "", "download_url の前に付けるURL")
	flags.StringVar(&flagLogFile, "log-file", "", "ログファイルのパス")
	flags.StringVar(&flagLogLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
	flags.StringVar(&flagInbox, "inbox", "", "監視する受信フォルダ (置かれた動画を自動で分割)")
	flags.StringSliceVar(&flagKeywords, "keywords", []string{}, "ファイル名に含まれるキーワードでフィルタ")
	flags.StringSliceVar(&flagIgnoreKeywords, "ignore-keywords", []string{}, "ファイル名に含まれるキーワードを除外")
}

func updateConfigFromFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("host") {
		c.Host = flagHost
	}
	if flags.Changed("port") {
		c.Port = flagPort
	}
	if flags.Changed("scratch-dir") {
		c.ScratchDir = flagScratchDir
	}
	if flags.Changed("ffmpeg-bin") {
		c.FFmpegBin = flagFFmpegBin
	}
	if flags.Changed("ytdlp-bin") {
		c.YtdlpBin = flagYtdlpBin
	}
	if flags.Changed("public-base-url") {
		c.PublicBaseURL = flagPublicBaseURL
	}
	if flags.Changed("log-file") {
		c.LogFile = flagLogFile
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("inbox") {
		c.InboxDir = flagInbox
	}
	if flags.Changed("keywords") {
		c.Keywords = flagKeywords
	}
	if flags.Changed("ignore-keywords") {
		c.IgnoreKeywords = flagIgnoreKeywords
	}
}
