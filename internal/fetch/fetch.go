// Package fetch retrieves remote videos. Fetcher is the port the service
// depends on; YtDlp is the yt-dlp backed implementation.
package fetch

import (
	"context"
	"errors"

	"github.com/mt4110/segcut/internal/store"
)

var ErrNoOutput = errors.New("download produced no file")

// Metadata describes a remote video. It is immutable once probed.
type Metadata struct {
	ID              string
	Title           string
	DurationSeconds int
}

type Fetcher interface {
	// Probe reads metadata without writing any bytes.
	Probe(ctx context.Context, url string) (Metadata, error)
	// Materialize downloads the full video as <targetID>.mp4 into the store.
	Materialize(ctx context.Context, url, targetID string) (store.StoredFile, error)
}
