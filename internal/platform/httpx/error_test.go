package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "trace-1"})
	rec := httptest.NewRecorder()

	WriteError(ctx, rec, NewError("handle_taken", "handle is\nalready taken", http.StatusConflict).
		WithDetails(map[string]any{"field": "handle"}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"] != "handle_taken" {
		t.Fatalf("error = %v", payload["error"])
	}
	if payload["message"] != "handle is already taken" {
		t.Fatalf("message not sanitised: %v", payload["message"])
	}
	if payload["trace_id"] != "trace-1" {
		t.Fatalf("trace_id = %v", payload["trace_id"])
	}
	details, ok := payload["details"].(map[string]any)
	if !ok || details["field"] != "handle" {
		t.Fatalf("details = %v", payload["details"])
	}
}

func TestNewErrorNormalises(t *testing.T) {
	e := NewError("  bad\tcode ", strings.Repeat("é", 300), 302)
	if e.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", e.Status)
	}
	if e.Code != "bad code" {
		t.Fatalf("code = %q", e.Code)
	}
	if len(e.Message) != messageLimit || !utf8.ValidString(e.Message) {
		t.Fatalf("message not truncated on a rune boundary: %d bytes", len(e.Message))
	}

	details := map[string]any{"goal": "goal must be a number"}
	e = e.WithDetails(details)
	details["goal"] = "mutated"
	if e.Details["goal"] != "goal must be a number" {
		t.Fatalf("details must be copied, got %v", e.Details)
	}
}

func TestWriteJSONHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]string{"ok": "yes"})
	if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("cache control = %q", got)
	}
}

func TestReadLimitedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("   "))
	if _, err := ReadLimitedBody(req, 10); err != ErrEmptyBody {
		t.Fatalf("expected empty body error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 11)))
	if _, err := ReadLimitedBody(req, 10); err != ErrBodyTooLarge {
		t.Fatalf("expected too large error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	data, err := ReadLimitedBody(req, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("data = %q", data)
	}
	if got := BodyError(ErrBodyTooLarge).Status; got != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", got)
	}
}
