package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 8 * time.Second
	DefaultPinataAPI = "https://api.pinata.cloud"
)

// PinError is a non-2xx answer from the pinning service.
type PinError struct {
	Op     string
	Status int
	Body   string
}

func (e *PinError) Error() string {
	return fmt.Sprintf("pinning: %s status %d: %s", e.Op, e.Status, e.Body)
}

// Pinata pins through the Pinata HTTP API and reads back through an IPFS gateway.
type Pinata struct {
	baseURL string
	jwt     string
	gateway string
	http    *http.Client
}

// PinataOption customises the client.
type PinataOption func(*Pinata)

func WithBaseURL(base string) PinataOption {
	return func(p *Pinata) {
		if base = strings.TrimSpace(base); base != "" {
			p.baseURL = strings.TrimRight(base, "/")
		}
	}
}

func WithGateway(gateway string) PinataOption {
	return func(p *Pinata) {
		if gateway = strings.TrimSpace(gateway); gateway != "" {
			p.gateway = gateway
		}
	}
}

func WithHTTPClient(client *http.Client) PinataOption {
	return func(p *Pinata) {
		if client != nil {
			p.http = client
		}
	}
}

// NewPinata constructs a client authenticated by a Pinata JWT.
func NewPinata(jwt string, opts ...PinataOption) (*Pinata, error) {
	jwt = strings.TrimSpace(jwt)
	if jwt == "" {
		return nil, errors.New("pinning: pinata jwt is required")
	}
	p := &Pinata{
		baseURL: DefaultPinataAPI,
		jwt:     jwt,
		gateway: DefaultGateway,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// PinFile uploads r as a multipart file.
func (p *Pinata) PinFile(ctx context.Context, name string, r io.Reader) (string, error) {
	name = cleanName(name)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(part, r)
	if err != nil {
		return "", fmt.Errorf("pinning: read %s: %w", name, err)
	}
	if n == 0 {
		return "", ErrEmptyContent
	}
	meta, _ := json.Marshal(map[string]string{"name": name})
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return p.pin(ctx, "pinFileToIPFS", mw.FormDataContentType(), &body)
}

// PinJSON uploads v as a JSON document.
func (p *Pinata) PinJSON(ctx context.Context, name string, v any) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"pinataContent":  v,
		"pinataMetadata": map[string]string{"name": cleanName(name)},
	})
	if err != nil {
		return "", fmt.Errorf("pinning: encode %s: %w", name, err)
	}
	return p.pin(ctx, "pinJSONToIPFS", "application/json", bytes.NewReader(payload))
}

func (p *Pinata) pin(ctx context.Context, op, contentType string, body io.Reader) (string, error) {
	endpoint, err := url.JoinPath(p.baseURL, "pinning", op)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinning: %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", &PinError{Op: op, Status: resp.StatusCode, Body: drainError(resp.Body)}
	}

	var out struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("pinning: decode %s response: %w", op, err)
	}
	if strings.TrimSpace(out.IpfsHash) == "" {
		return "", fmt.Errorf("pinning: %s returned no hash", op)
	}
	return SchemeIPFS + strings.TrimSpace(out.IpfsHash), nil
}

// Fetch reads a pinned JSON document through the gateway into v.
func (p *Pinata) Fetch(ctx context.Context, uri string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, GatewayURL(uri, p.gateway), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("pinning: fetch %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &PinError{Op: "fetch", Status: resp.StatusCode, Body: drainError(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("pinning: decode %s: %w", uri, err)
	}
	return nil
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
