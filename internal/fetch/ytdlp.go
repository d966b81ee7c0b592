package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mt4110/segcut/internal/runner"
	"github.com/mt4110/segcut/internal/store"
)

// YtDlp fetches videos with the yt-dlp command line tool.
type YtDlp struct {
	Bin         string
	Format      string
	UserAgent   string
	TitleMaxLen int
	Credentials Credentials

	store *store.Store
	run   runner.Func
	log   zerolog.Logger
}

func NewYtDlp(bin string, s *store.Store, creds Credentials, log zerolog.Logger) *YtDlp {
	if bin == "" {
		bin = "yt-dlp"
	}
	if creds == nil {
		creds = NoAuth{}
	}
	return &YtDlp{
		Bin:         bin,
		Format:      "mp4[height<=720][filesize<50M]",
		TitleMaxLen: 50,
		Credentials: creds,
		store:       s,
		run:         runner.Exec,
		log:         log,
	}
}

type probeOutput struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Duration *float64 `json:"duration"`
}

func (y *YtDlp) baseArgs() []string {
	args := []string{"--no-playlist", "--no-warnings", "--quiet"}
	if y.UserAgent != "" {
		args = append(args, "--user-agent", y.UserAgent)
	}
	return args
}

func (y *YtDlp) Probe(ctx context.Context, url string) (Metadata, error) {
	credArgs, cleanup, err := y.Credentials.Args()
	if err != nil {
		return Metadata{}, err
	}
	defer cleanup()

	args := append(y.baseArgs(), credArgs...)
	args = append(args, "--dump-single-json", "--skip-download", url)

	out, err := y.run(ctx, y.Bin, args...)
	if err != nil {
		return Metadata{}, fmt.Errorf("probe %s: %w", url, err)
	}
	return parseProbe(out, y.TitleMaxLen)
}

func parseProbe(out []byte, titleMaxLen int) (Metadata, error) {
	var p probeOutput
	if err := json.Unmarshal(out, &p); err != nil {
		return Metadata{}, fmt.Errorf("decode probe output: %w", err)
	}
	if p.ID == "" {
		return Metadata{}, fmt.Errorf("probe output has no id")
	}

	id := p.ID
	if store.ValidateID(id) != nil {
		id = store.SanitizeID(id)
	}

	duration := 0
	if p.Duration != nil && *p.Duration > 0 {
		duration = int(math.Round(*p.Duration))
	}

	return Metadata{
		ID:              id,
		Title:           truncate(p.Title, titleMaxLen),
		DurationSeconds: duration,
	}, nil
}

func truncate(title string, max int) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Video"
	}
	r := []rune(title)
	if max > 0 && len(r) > max {
		return string(r[:max])
	}
	return title
}

func (y *YtDlp) Materialize(ctx context.Context, url, targetID string) (store.StoredFile, error) {
	name := store.VideoName(targetID)
	target, err := y.store.Path(targetID, name)
	if err != nil {
		return store.StoredFile{}, err
	}

	credArgs, cleanup, err := y.Credentials.Args()
	if err != nil {
		return store.StoredFile{}, err
	}
	defer cleanup()

	outTemplate := filepath.Join(filepath.Dir(target), targetID+".%(ext)s")
	args := append(y.baseArgs(), credArgs...)
	args = append(args,
		"-f", y.Format,
		"--merge-output-format", "mp4",
		"-o", outTemplate,
		url,
	)

	y.log.Debug().Str("bin", y.Bin).Strs("args", args).Msg("downloading")
	if _, err := y.run(ctx, y.Bin, args...); err != nil {
		return store.StoredFile{}, fmt.Errorf("download %s: %w", url, err)
	}

	f, err := y.store.Stat(targetID, name)
	if err != nil {
		if _, statErr := os.Stat(target); os.IsNotExist(statErr) {
			return store.StoredFile{}, fmt.Errorf("%w: %s", ErrNoOutput, name)
		}
		return store.StoredFile{}, err
	}
	return f, nil
}
