//go:build !unix

package store

import "errors"

func freeSpace(string) (uint64, error) {
	return 0, errors.New("free space query not supported on this platform")
}
