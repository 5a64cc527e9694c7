package share

import (
	"bytes"
	"image/png"
	"net/url"
	"testing"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

func TestPageURL(t *testing.T) {
	if got := PageURL("https://onclick.example/", "ecotech", Preview{}); got != "https://onclick.example/ecotech" {
		t.Fatalf("PageURL = %s", got)
	}
	got := PageURL("https://onclick.example", "", Preview{Role: domain.RoleBusiness, Layout: "store"})
	if got != "https://onclick.example/public-page?role=business&layout=store" {
		t.Fatalf("preview PageURL = %s", got)
	}
}

func TestTextPerRole(t *testing.T) {
	cases := map[domain.Role]string{
		domain.RoleBusiness:    "Check out Bean on OnClick!",
		domain.RoleCrowdfunder: "Support Bean's campaign on OnClick!",
		domain.RoleCreator:     "Support Bean on OnClick!",
	}
	for role, want := range cases {
		if got := Text(role, "Bean"); got != want {
			t.Fatalf("Text(%s) = %q, want %q", role, got, want)
		}
	}
}

func TestIntentsAreEscaped(t *testing.T) {
	pageURL := "https://onclick.example/a-b?x=1&y=2"
	twitter := TwitterIntent("Support A & B on OnClick!", pageURL)

	u, err := url.Parse(twitter)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "twitter.com" || u.Path != "/intent/tweet" {
		t.Fatalf("unexpected intent %s", twitter)
	}
	if u.Query().Get("text") != "Support A & B on OnClick!" || u.Query().Get("url") != pageURL {
		t.Fatalf("query did not round trip: %v", u.Query())
	}
	if bytes.Contains([]byte(twitter), []byte("+")) {
		t.Fatalf("spaces should be percent-encoded: %s", twitter)
	}

	telegram, err := url.Parse(TelegramIntent(pageURL, "hi there"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if telegram.Host != "t.me" || telegram.Query().Get("url") != pageURL || telegram.Query().Get("text") != "hi there" {
		t.Fatalf("unexpected telegram intent %s", telegram)
	}
}

func TestEmbedEscapesAttribute(t *testing.T) {
	got := Embed(`https://onclick.example/x"><script>`)
	want := `<iframe src="https://onclick.example/x&#34;&gt;&lt;script&gt;" width="100%" height="600" frameborder="0" style="border-radius: 12px;"></iframe>`
	if got != want {
		t.Fatalf("Embed = %s", got)
	}
}

func TestQRProducesPNG(t *testing.T) {
	data, err := QR("https://onclick.example/ecotech", 128)
	if err != nil {
		t.Fatalf("QR: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 128 {
		t.Fatalf("width = %d", img.Bounds().Dx())
	}
}

func TestForUsesPlaceholderName(t *testing.T) {
	links := For("https://onclick.example", domain.PageDraft{Role: domain.RoleCreator, Handle: "maya"})
	if links.URL != "https://onclick.example/maya" || links.QR != "/maya/qr.png" {
		t.Fatalf("unexpected links %+v", links)
	}
	want := Text(domain.RoleCreator, domain.Placeholders(domain.RoleCreator).Name)
	if links.Text != want {
		t.Fatalf("text = %q, want %q", links.Text, want)
	}

	preview := For("https://onclick.example", domain.PageDraft{Role: domain.RoleBusiness, Name: "Bean"})
	if preview.QR != "" || preview.URL != "https://onclick.example/public-page?role=business&layout=minimal" {
		t.Fatalf("unexpected preview links %+v", preview)
	}
}
