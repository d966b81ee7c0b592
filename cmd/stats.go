package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mt4110/segcut/internal/logger"
)

// segmentLogEntry is the subset of a segment_result log line stats reads.
type segmentLogEntry struct {
	Type    string `json:"type"`
	VideoID string `json:"video_id"`
	Length  int    `json:"length"`
	Size    int64  `json:"size"`
	Time    string `json:"time"`
}

type statsSummary struct {
	Segments     int
	Videos       int
	TotalBytes   int64
	TotalSeconds int
	First, Last  string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "分割統計を表示します",
	Long:  `ログファイルの segment_result 行を集計し、作成したセグメント数や合計サイズを表示します。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath := cfg.LogFile
		if logPath == "" {
			logPath = logger.DefaultPath()
		}
		f, err := os.Open(logPath)
		if err != nil {
			return fmt.Errorf("ログファイルを開けませんでした: %w", err)
		}
		defer f.Close()

		s, err := summarize(f)
		if err != nil {
			return err
		}

		const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
		fmt.Println(separator)
		fmt.Printf("📊 segcut 統計レポート\n")
		fmt.Println(separator)
		fmt.Printf("対象動画数:     %d 本\n", s.Videos)
		fmt.Printf("総セグメント数: %d 本\n", s.Segments)
		fmt.Printf("合計サイズ:     %s\n", humanize.IBytes(uint64(s.TotalBytes)))
		fmt.Printf("合計再生時間:   %d 秒\n", s.TotalSeconds)
		if s.Segments > 0 {
			fmt.Printf("平均サイズ:     %s/本\n", humanize.IBytes(uint64(s.TotalBytes/int64(s.Segments))))
			fmt.Printf("期間:           %s 〜 %s\n", s.First, s.Last)
		}
		fmt.Println(separator)
		return nil
	},
}

// summarize aggregates segment_result lines. Lines that are not JSON, such
// as console output captured in the same file, are skipped.
func summarize(r io.Reader) (statsSummary, error) {
	var s statsSummary
	videos := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, "{")
		if idx == -1 {
			continue
		}
		var entry segmentLogEntry
		if err := json.Unmarshal([]byte(line[idx:]), &entry); err != nil {
			continue
		}
		if entry.Type != "segment_result" {
			continue
		}
		s.Segments++
		s.TotalBytes += entry.Size
		s.TotalSeconds += entry.Length
		videos[entry.VideoID] = struct{}{}
		if s.First == "" {
			s.First = entry.Time
		}
		s.Last = entry.Time
	}
	s.Videos = len(videos)
	return s, scanner.Err()
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
