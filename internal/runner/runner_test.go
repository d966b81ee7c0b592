package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_NotInstalled(t *testing.T) {
	_, err := Exec(context.Background(), "segcut-definitely-missing-binary")
	assert.ErrorIs(t, err, ErrNotInstalled)

	_, err = LookPath("segcut-definitely-missing-binary")
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestExec_Output(t *testing.T) {
	if _, err := LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	out, err := Exec(context.Background(), "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestExec_ExitErrorCarriesStderr(t *testing.T) {
	if _, err := LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	_, err := Exec(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "broken", exitErr.Stderr)
}

func TestExec_Timeout(t *testing.T) {
	if _, err := LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Exec(ctx, "sleep", "5")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("  abc \n", 10))
	assert.Equal(t, "def", tail("abcdef", 3))
}
