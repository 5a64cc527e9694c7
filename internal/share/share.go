// Package share derives the outward-facing addresses of a page: its canonical URL, social
// intents, the iframe embed snippet and a QR code.
package share

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

const (
	DefaultQRSize = 256
	maxQRSize     = 1024
)

// Preview identifies a handle-less page.
type Preview struct {
	Role   domain.Role
	Layout domain.Layout
}

// Links bundles every share output for one page.
type Links struct {
	URL      string `json:"url"`
	Text     string `json:"text"`
	Twitter  string `json:"twitter"`
	Telegram string `json:"telegram"`
	Embed    string `json:"embed"`
	QR       string `json:"qr,omitempty"`
}

// PageURL is the canonical address of a page. Without a handle it points at the preview.
func PageURL(base, handle string, preview Preview) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if handle = strings.TrimSpace(handle); handle != "" {
		return base + "/" + url.PathEscape(handle)
	}
	return fmt.Sprintf("%s/public-page?role=%s&layout=%s", base, url.QueryEscape(string(preview.Role)), url.QueryEscape(string(preview.Layout)))
}

// Text is the role-specific share message.
func Text(role domain.Role, name string) string {
	switch role {
	case domain.RoleBusiness:
		return fmt.Sprintf("Check out %s on OnClick!", name)
	case domain.RoleCrowdfunder:
		return fmt.Sprintf("Support %s's campaign on OnClick!", name)
	default:
		return fmt.Sprintf("Support %s on OnClick!", name)
	}
}

func TwitterIntent(text, pageURL string) string {
	return "https://twitter.com/intent/tweet?text=" + component(text) + "&url=" + component(pageURL)
}

func TelegramIntent(pageURL, text string) string {
	return "https://t.me/share/url?url=" + component(pageURL) + "&text=" + component(text)
}

// Embed returns the iframe snippet for pageURL.
func Embed(pageURL string) string {
	return `<iframe src="` + html.EscapeString(pageURL) + `" width="100%" height="600" frameborder="0" style="border-radius: 12px;"></iframe>`
}

// QR encodes pageURL as a PNG with medium error recovery.
func QR(pageURL string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}
	png, err := qrcode.Encode(pageURL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("share: encode qr: %w", err)
	}
	return png, nil
}

// For builds every output for a draft. The name shown in the message falls back to the
// placeholder the page renders with.
func For(base string, draft domain.PageDraft) Links {
	display := draft.Display()
	pageURL := PageURL(base, draft.Handle, Preview{Role: display.Role, Layout: display.Layout})
	text := Text(display.Role, display.Name)
	links := Links{
		URL:      pageURL,
		Text:     text,
		Twitter:  TwitterIntent(text, pageURL),
		Telegram: TelegramIntent(pageURL, text),
		Embed:    Embed(pageURL),
	}
	if draft.Handle != "" {
		links.QR = "/" + url.PathEscape(draft.Handle) + "/qr.png"
	}
	return links
}

// component escapes like a browser's encodeURIComponent: spaces become %20.
func component(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
