package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mt4110/segcut/internal/config"
	"github.com/mt4110/segcut/internal/store"
)

type recordedCall struct {
	bin  string
	args []string
}

func newTestYtDlp(t *testing.T, run func(args []string) ([]byte, error)) (*YtDlp, *store.Store, *[]recordedCall) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var calls []recordedCall
	y := NewYtDlp("", s, nil, zerolog.Nop())
	y.run = func(_ context.Context, bin string, args ...string) ([]byte, error) {
		calls = append(calls, recordedCall{bin: bin, args: args})
		return run(args)
	}
	return y, s, &calls
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestProbe(t *testing.T) {
	y, _, calls := newTestYtDlp(t, func([]string) ([]byte, error) {
		return []byte(`{"id":"dQw4w9WgXcQ","title":"  A very long title that goes on and on beyond fifty characters  ","duration":29.6}`), nil
	})
	y.UserAgent = "test-agent"

	meta, err := y.Probe(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", meta.ID)
	assert.Equal(t, 30, meta.DurationSeconds)
	assert.Len(t, []rune(meta.Title), 50)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "yt-dlp", call.bin)
	assert.Contains(t, call.args, "--dump-single-json")
	assert.Contains(t, call.args, "--no-playlist")
	assert.Equal(t, "test-agent", argValue(call.args, "--user-agent"))
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", call.args[len(call.args)-1])
}

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    Metadata
		wantErr bool
	}{
		{name: "missing duration", out: `{"id":"abc","title":"t"}`, want: Metadata{ID: "abc", Title: "t"}},
		{name: "null duration", out: `{"id":"abc","title":"t","duration":null}`, want: Metadata{ID: "abc", Title: "t"}},
		{name: "empty title", out: `{"id":"abc","duration":12}`, want: Metadata{ID: "abc", Title: "Video", DurationSeconds: 12}},
		{name: "unsafe id", out: `{"id":"../etc","title":"t","duration":7}`, want: Metadata{ID: "etc", Title: "t", DurationSeconds: 7}},
		{name: "no id", out: `{"title":"t"}`, wantErr: true},
		{name: "not json", out: `ERROR: unavailable`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbe([]byte(tt.out), 50)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbe_ToolFailure(t *testing.T) {
	y, _, _ := newTestYtDlp(t, func([]string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})
	_, err := y.Probe(context.Background(), "https://example.com/v")
	assert.ErrorContains(t, err, "exit status 1")
}

func TestMaterialize(t *testing.T) {
	y, s, calls := newTestYtDlp(t, func(args []string) ([]byte, error) {
		out := strings.Replace(argValue(args, "-o"), "%(ext)s", "mp4", 1)
		return nil, os.WriteFile(out, make([]byte, 4096), 0o644)
	})

	f, err := y.Materialize(context.Background(), "https://youtu.be/abc", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc.mp4", f.Name)
	assert.EqualValues(t, 4096, f.SizeBytes)
	assert.Equal(t, filepath.Join(s.Root(), "abc", "abc.mp4"), f.Path)

	args := (*calls)[0].args
	assert.Equal(t, "mp4[height<=720][filesize<50M]", argValue(args, "-f"))
	assert.Equal(t, "mp4", argValue(args, "--merge-output-format"))
}

func TestMaterialize_NoOutput(t *testing.T) {
	y, _, _ := newTestYtDlp(t, func([]string) ([]byte, error) { return nil, nil })

	_, err := y.Materialize(context.Background(), "https://youtu.be/abc", "abc")
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestMaterialize_InvalidID(t *testing.T) {
	y, _, calls := newTestYtDlp(t, func([]string) ([]byte, error) { return nil, nil })

	_, err := y.Materialize(context.Background(), "https://youtu.be/abc", "../abc")
	assert.ErrorIs(t, err, store.ErrInvalidID)
	assert.Empty(t, *calls)
}

func TestCredentials(t *testing.T) {
	args, cleanup, err := NoAuth{}.Args()
	require.NoError(t, err)
	cleanup()
	assert.Empty(t, args)

	jar := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(jar, []byte("# Netscape HTTP Cookie File\n"), 0o600))
	args, cleanup, err = CookieFile{Path: jar}.Args()
	require.NoError(t, err)
	cleanup()
	assert.Equal(t, []string{"--cookies", jar}, args)

	_, _, err = CookieFile{Path: filepath.Join(t.TempDir(), "missing.txt")}.Args()
	assert.Error(t, err)

	inline := InlineCookies{Entries: []config.Cookie{{Domain: ".youtube.com", Name: "SID", Value: "secret", Secure: true}}}
	args, cleanup, err = inline.Args()
	require.NoError(t, err)
	require.Len(t, args, 2)
	body, err := os.ReadFile(args[1])
	require.NoError(t, err)
	assert.Contains(t, string(body), ".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tsecret\n")
	cleanup()
	assert.NoFileExists(t, args[1])
}

func TestCredentialsFromConfig(t *testing.T) {
	assert.IsType(t, NoAuth{}, CredentialsFromConfig(config.Cookies{}))
	assert.IsType(t, CookieFile{}, CredentialsFromConfig(config.Cookies{Mode: config.CookieModeFile, File: "c.txt"}))
	assert.IsType(t, InlineCookies{}, CredentialsFromConfig(config.Cookies{Mode: config.CookieModeInline}))
}

func TestMaterialize_PassesInlineCookies(t *testing.T) {
	var jarSeen string
	y, _, _ := newTestYtDlp(t, func(args []string) ([]byte, error) {
		jarSeen = argValue(args, "--cookies")
		if _, err := os.Stat(jarSeen); err != nil {
			return nil, err
		}
		out := strings.Replace(argValue(args, "-o"), "%(ext)s", "mp4", 1)
		return nil, os.WriteFile(out, []byte("x"), 0o644)
	})
	y.Credentials = InlineCookies{Entries: []config.Cookie{{Domain: "youtube.com", Name: "a", Value: "b"}}}

	_, err := y.Materialize(context.Background(), "https://youtu.be/abc", "abc")
	require.NoError(t, err)
	assert.NotEmpty(t, jarSeen)
	assert.NoFileExists(t, jarSeen, "temporary jar is removed after the call")
}
