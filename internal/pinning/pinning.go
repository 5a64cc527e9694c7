// Package pinning publishes page assets and metadata to content-addressed storage.
package pinning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	SchemeIPFS = "ipfs://"
	SchemeGCS  = "gs://"

	DefaultGateway  = "https://ipfs.io/ipfs/"
	DefaultMaxBytes = 5 << 20

	gcsPublicBase = "https://storage.googleapis.com/"
)

var ErrEmptyContent = errors.New("pinning: content is empty")

// Pinner stores content and returns its URI.
type Pinner interface {
	PinFile(ctx context.Context, name string, r io.Reader) (string, error)
	PinJSON(ctx context.Context, name string, v any) (string, error)
}

// SizeError reports an upload over the configured limit. Size is a lower bound when the
// upload was cut off while streaming.
type SizeError struct {
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("pinning: file exceeds the %s upload limit", humanize.IBytes(uint64(e.Limit)))
}

// CheckSize fails when size exceeds limit. A non-positive limit disables the check.
func CheckSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return &SizeError{Size: size, Limit: limit}
	}
	return nil
}

// Limited rejects files over Max bytes before they reach the wrapped pinner.
type Limited struct {
	Pinner
	Max int64
}

func (l Limited) PinFile(ctx context.Context, name string, r io.Reader) (string, error) {
	max := l.Max
	if max <= 0 {
		max = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return "", fmt.Errorf("pinning: read %s: %w", name, err)
	}
	if int64(len(data)) > max {
		return "", &SizeError{Size: int64(len(data)), Limit: max}
	}
	return l.Pinner.PinFile(ctx, name, bytes.NewReader(data))
}

// GatewayURL maps a pinned URI to a fetchable https address. Unknown schemes pass through.
func GatewayURL(uri, gateway string) string {
	if gateway == "" {
		gateway = DefaultGateway
	}
	switch {
	case strings.HasPrefix(uri, SchemeIPFS):
		return strings.TrimRight(gateway, "/") + "/" + strings.TrimPrefix(uri, SchemeIPFS)
	case strings.HasPrefix(uri, SchemeGCS):
		return gcsPublicBase + strings.TrimPrefix(uri, SchemeGCS)
	}
	return uri
}

// CID strips the ipfs scheme.
func CID(uri string) string {
	return strings.TrimPrefix(uri, SchemeIPFS)
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	if len(name) > 120 {
		name = name[len(name)-120:]
	}
	return name
}
