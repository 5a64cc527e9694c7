package pinning

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCS pins content into a Cloud Storage bucket under its sha256 digest.
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS constructs a bucket-backed pinner.
func NewGCS(client *gcs.Client, bucket string) (*GCS, error) {
	if client == nil {
		return nil, errors.New("pinning: storage client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("pinning: bucket is required")
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) PinFile(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("pinning: read %s: %w", name, err)
	}
	return g.put(ctx, cleanName(name), http.DetectContentType(data), data)
}

func (g *GCS) PinJSON(ctx context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("pinning: encode %s: %w", name, err)
	}
	name = cleanName(name)
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return g.put(ctx, name, "application/json", data)
}

func (g *GCS) put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	sum := sha256.Sum256(data)
	object := "pins/" + hex.EncodeToString(sum[:]) + "/" + name

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("pinning: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("pinning: close %s: %w", object, err)
	}
	return SchemeGCS + g.bucket + "/" + object, nil
}
