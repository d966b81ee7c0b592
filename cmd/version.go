package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/mt4110/segcut/internal/updater"
)

// Set with -ldflags "-X".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flagVersionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "バージョン情報と外部ツールのバージョンを表示します",
	Run: func(cmd *cobra.Command, args []string) {
		if flagVersionShort {
			fmt.Println(version)
			return
		}
		fmt.Printf("segcut  %s (%s, %s)\n", version, commit, date)
		if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Printf("Go:     %s\n", info.GoVersion)
		}
		for _, st := range updater.NewChecker().Check(cmd.Context(), updater.Tools(cfg.FFmpegBin, cfg.YtdlpBin)) {
			v := st.Version
			if !st.OK() {
				v = "(not found)"
			}
			fmt.Printf("%-7s %s\n", st.Tool.Name+":", v)
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&flagVersionShort, "short", false, "バージョン番号のみ表示する")
	rootCmd.AddCommand(versionCmd)
}
