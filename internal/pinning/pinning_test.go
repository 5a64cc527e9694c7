package pinning

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

type countingPinner struct {
	calls int
}

func (c *countingPinner) PinFile(context.Context, string, io.Reader) (string, error) {
	c.calls++
	return SchemeIPFS + "file", nil
}

func (c *countingPinner) PinJSON(context.Context, string, any) (string, error) {
	c.calls++
	return SchemeIPFS + "json", nil
}

func TestPinataPinJSON(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinJSONToIPFS" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"IpfsHash":"QmPage","PinSize":12}`))
	}))
	defer srv.Close()

	client, err := NewPinata("jwt-token", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewPinata: %v", err)
	}
	uri, err := client.PinJSON(context.Background(), "page-ecotech", map[string]string{"name": "EcoTech"})
	if err != nil {
		t.Fatalf("PinJSON: %v", err)
	}
	if uri != "ipfs://QmPage" {
		t.Fatalf("uri = %s", uri)
	}
	if gotAuth != "Bearer jwt-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	content, _ := gotBody["pinataContent"].(map[string]any)
	meta, _ := gotBody["pinataMetadata"].(map[string]any)
	if content["name"] != "EcoTech" || meta["name"] != "page-ecotech" {
		t.Fatalf("unexpected body %#v", gotBody)
	}
}

func TestPinataPinFileMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "banner.png" || string(data) != "png-bytes" {
			http.Error(w, "unexpected file", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"IpfsHash":"QmBanner"}`))
	}))
	defer srv.Close()

	client, _ := NewPinata("jwt", WithBaseURL(srv.URL))
	uri, err := client.PinFile(context.Background(), "../../banner.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("PinFile: %v", err)
	}
	if uri != "ipfs://QmBanner" {
		t.Fatalf("uri = %s", uri)
	}
}

func TestPinataErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid jwt", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, _ := NewPinata("bad", WithBaseURL(srv.URL))
	_, err := client.PinJSON(context.Background(), "x", map[string]int{"a": 1})
	var pinErr *PinError
	if !errors.As(err, &pinErr) {
		t.Fatalf("expected PinError, got %v", err)
	}
	if pinErr.Status != http.StatusUnauthorized || !strings.Contains(pinErr.Body, "invalid jwt") {
		t.Fatalf("unexpected error %+v", pinErr)
	}
}

func TestPinataFetchUsesGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/QmPage" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"name":"EcoTech","theme":"#2E86AB"}`))
	}))
	defer srv.Close()

	client, _ := NewPinata("jwt", WithGateway(srv.URL+"/ipfs/"))
	var meta PageMetadata
	if err := client.Fetch(context.Background(), "ipfs://QmPage", &meta); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if meta.Name != "EcoTech" || meta.Theme != "#2E86AB" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestNewPinataRequiresJWT(t *testing.T) {
	if _, err := NewPinata("  "); err == nil {
		t.Fatal("expected error")
	}
}

func TestGatewayURL(t *testing.T) {
	if got := GatewayURL("ipfs://QmX", ""); got != "https://ipfs.io/ipfs/QmX" {
		t.Fatalf("GatewayURL = %s", got)
	}
	if got := GatewayURL("gs://bucket/pins/a/b.png", ""); got != "https://storage.googleapis.com/bucket/pins/a/b.png" {
		t.Fatalf("GatewayURL = %s", got)
	}
	if got := GatewayURL("https://cdn.example/x.png", ""); got != "https://cdn.example/x.png" {
		t.Fatalf("GatewayURL = %s", got)
	}
}

func TestLimitedRejectsLargeFiles(t *testing.T) {
	inner := &countingPinner{}
	limited := Limited{Pinner: inner, Max: 4}

	_, err := limited.PinFile(context.Background(), "big.bin", strings.NewReader("0123456789"))
	var sizeErr *SizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected SizeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "4 B") {
		t.Fatalf("expected humanized limit in %q", err.Error())
	}
	if inner.calls != 0 {
		t.Fatal("oversized file must not reach the pinner")
	}

	if _, err := limited.PinFile(context.Background(), "ok.bin", strings.NewReader("0123")); err != nil {
		t.Fatalf("PinFile: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d", inner.calls)
	}
}

func TestPinTransactionMessageSkipsBlank(t *testing.T) {
	p := &countingPinner{}
	uri, err := PinTransactionMessage(context.Background(), p, TransactionMessage{Message: "   "})
	if err != nil || uri != "" {
		t.Fatalf("expected empty uri, got %q %v", uri, err)
	}
	if p.calls != 0 {
		t.Fatal("blank message must not be pinned")
	}

	mem := NewMemory()
	uri, err = PinTransactionMessage(context.Background(), mem, TransactionMessage{Message: " thanks! ", IsPublic: true})
	if err != nil {
		t.Fatalf("PinTransactionMessage: %v", err)
	}
	raw, ok := mem.Get(uri)
	if !ok {
		t.Fatal("message not pinned")
	}
	var msg TransactionMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Message != "thanks!" || !msg.IsPublic {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestMemoryIsContentAddressed(t *testing.T) {
	mem := NewMemory()
	a, _ := mem.PinFile(context.Background(), "a.txt", strings.NewReader("same"))
	b, _ := mem.PinFile(context.Background(), "b.txt", strings.NewReader("same"))
	if a != b || mem.Len() != 1 {
		t.Fatalf("expected identical content to share a cid: %s %s", a, b)
	}
	if _, err := mem.PinFile(context.Background(), "empty", strings.NewReader("")); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestNewPageMetadata(t *testing.T) {
	goal := 50000.0
	meta := NewPageMetadata(domain.PageDraft{
		Role: domain.RoleCrowdfunder, Handle: "ecotech", Name: "EcoTech", Theme: "#2E86AB",
		Layout: "story", Goal: &goal, Deadline: "2030-01-01", Banner: "ipfs://banner",
	})
	if meta.Name != "EcoTech" || meta.BannerURL != "ipfs://banner" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.CustomFields["goal"] != goal || meta.CustomFields["deadline"] != "2030-01-01" || meta.CustomFields["handle"] != "ecotech" {
		t.Fatalf("unexpected custom fields %#v", meta.CustomFields)
	}
}
