// Package datasource defines where raw input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a readable stream of the input. Name identifies the source in
// logs and errors (for a file, its path).
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}
