// Package updater checks that the external tools segcut drives are installed.
package updater

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mt4110/segcut/internal/runner"
)

type Tool struct {
	Name       string
	Bin        string
	VersionArg string
	// InstallHint is shown when the tool is missing.
	InstallHint string
}

// Tools returns the fetcher and segmenter binaries for the given paths.
func Tools(ffmpegBin, ytdlpBin string) []Tool {
	return []Tool{
		{Name: "ffmpeg", Bin: ffmpegBin, VersionArg: "-version", InstallHint: "https://ffmpeg.org/download.html"},
		{Name: "yt-dlp", Bin: ytdlpBin, VersionArg: "--version", InstallHint: "pip install -U yt-dlp"},
	}
}

type Status struct {
	Tool    Tool
	Path    string
	Version string
	Err     error
}

func (s Status) OK() bool { return s.Err == nil }

type Checker struct {
	lookPath func(string) (string, error)
	run      runner.Func
	timeout  time.Duration
}

func NewChecker() *Checker {
	return &Checker{lookPath: runner.LookPath, run: runner.Exec, timeout: 10 * time.Second}
}

// Check resolves every tool and reads the first line of its version output.
// A tool that resolves but fails to report a version is still usable.
func (c *Checker) Check(ctx context.Context, tools []Tool) []Status {
	out := make([]Status, 0, len(tools))
	for _, t := range tools {
		st := Status{Tool: t}
		st.Path, st.Err = c.lookPath(t.Bin)
		if st.Err == nil && t.VersionArg != "" {
			vctx, cancel := context.WithTimeout(ctx, c.timeout)
			if b, err := c.run(vctx, st.Path, t.VersionArg); err == nil {
				st.Version = firstLine(string(b))
			}
			cancel()
		}
		out = append(out, st)
	}
	return out
}

// Warn logs a warning for every missing tool.
func Warn(log zerolog.Logger, statuses []Status) {
	for _, st := range statuses {
		if st.OK() {
			continue
		}
		log.Warn().Str("tool", st.Tool.Name).Str("bin", st.Tool.Bin).Str("install", st.Tool.InstallHint).Msg("external tool not found")
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
