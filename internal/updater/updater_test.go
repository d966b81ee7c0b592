package updater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mt4110/segcut/internal/runner"
)

func TestCheck(t *testing.T) {
	c := &Checker{
		lookPath: func(bin string) (string, error) {
			if bin == "ffmpeg" {
				return "/usr/bin/ffmpeg", nil
			}
			return "", runner.ErrNotInstalled
		},
		run: func(_ context.Context, bin string, args ...string) ([]byte, error) {
			assert.Equal(t, "/usr/bin/ffmpeg", bin)
			assert.Equal(t, []string{"-version"}, args)
			return []byte("ffmpeg version 7.1 Copyright (c)\nbuilt with gcc\n"), nil
		},
		timeout: time.Second,
	}

	statuses := c.Check(context.Background(), Tools("ffmpeg", "yt-dlp"))
	require.Len(t, statuses, 2)

	assert.True(t, statuses[0].OK())
	assert.Equal(t, "ffmpeg version 7.1 Copyright (c)", statuses[0].Version)

	assert.False(t, statuses[1].OK())
	assert.True(t, errors.Is(statuses[1].Err, runner.ErrNotInstalled))
	assert.Empty(t, statuses[1].Version)
}
