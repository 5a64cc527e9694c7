// Package render turns drafts into public page view models and writes HTML responses.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/payments"
	"github.com/onclick-pay/onclick-web/internal/share"
)

// Template is the structural variant of a public page.
type Template string

const (
	TemplateHero    Template = "hero"
	TemplateCard    Template = "card"
	TemplateDefault Template = "default"
)

// Panel is the right-hand column of a page.
type Panel string

const (
	PanelStats   Panel = "stats"
	PanelPayment Panel = "payment"
)

var templateByLayout = map[domain.Role]map[domain.Layout]Template{
	domain.RoleCreator: {
		"creative":  TemplateHero,
		"community": TemplateCard,
	},
	domain.RoleBusiness: {
		"store":   TemplateHero,
		"service": TemplateCard,
	},
	domain.RoleCrowdfunder: {
		"milestone": TemplateHero,
		"story":     TemplateCard,
	},
}

// SelectTemplate maps a (role, layout) pair to its template. Unknown pairs use the default.
func SelectTemplate(role domain.Role, layout domain.Layout) Template {
	if t, ok := templateByLayout[role][layout]; ok {
		return t
	}
	return TemplateDefault
}

// SelectPanel shows goal stats for creators and crowdfunders with a positive goal; everyone
// else gets the centred payment form. The card template always carries the payment card.
func SelectPanel(tmpl Template, role domain.Role, goal float64) Panel {
	if tmpl == TemplateCard {
		return PanelPayment
	}
	if (role == domain.RoleCrowdfunder || role == domain.RoleCreator) && goal > 0 {
		return PanelStats
	}
	return PanelPayment
}

// ProgressView describes goal progress. Percent is uncapped; Bar is clamped to [0,100].
type ProgressView struct {
	Percent float64
	Bar     float64
	Over    bool
	OverBy  float64
}

func Progress(raised, goal float64) ProgressView {
	if goal <= 0 {
		return ProgressView{}
	}
	pct := raised / goal * 100
	p := ProgressView{Percent: pct, Bar: math.Max(0, math.Min(100, pct))}
	if raised > goal {
		p.Over = true
		p.OverBy = raised - goal
	}
	return p
}

// Viewer carries the owner flags of the requesting session.
type Viewer struct {
	OwnsHandle  bool
	GlobalOwner bool
}

// CanEdit reports whether owner controls are shown.
func (v Viewer) CanEdit() bool {
	return v.OwnsHandle || v.GlobalOwner
}

// DaysLeft describes the time until a YYYY-MM-DD deadline, rounding partial days up.
func DaysLeft(deadline string, now time.Time) (string, bool) {
	t, err := time.Parse(domain.DeadlineLayout, strings.TrimSpace(deadline))
	if err != nil {
		return "", false
	}
	days := int(math.Ceil(t.Sub(now).Hours() / 24))
	if days > 0 {
		return fmt.Sprintf("%d days left", days), true
	}
	return "Campaign ended", true
}

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// Money formats an amount in dollars with thousands separators.
func Money(v float64) string {
	if v == math.Trunc(v) {
		return moneyPrinter.Sprintf("$%d", int64(v))
	}
	return moneyPrinter.Sprintf("$%.2f", v)
}

// Count formats an integer with thousands separators.
func Count(n int) string {
	return moneyPrinter.Sprintf("%d", n)
}

var (
	markdown  = goldmark.New()
	ugcPolicy = bluemonday.UGCPolicy()
)

// Description renders markdown and strips anything unsafe.
func Description(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(ugcPolicy.SanitizeBytes(buf.Bytes()))
}

// PageOptions carries request-scoped inputs to BuildPage.
type PageOptions struct {
	BaseURL string
	Viewer  Viewer
	Preview bool
	Amount  string
	Now     time.Time
}

// PageView is everything the public page template needs.
type PageView struct {
	Page            domain.Display
	DescriptionHTML template.HTML
	Template        Template
	Panel           Panel
	Progress        ProgressView
	Raised          string
	Goal            string
	OverBy          string
	Supporters      string
	DaysLeft        string
	Owner           bool
	Preview         bool
	Addressable     bool
	EditURL         string
	BackURL         string
	Share           share.Links
	Payment         payments.Copy
	Methods         []payments.Method
	Currencies      []payments.Currency
	QuickAmounts    []int
}

// BuildPage is the pure view model of a page.
func BuildPage(draft domain.PageDraft, opts PageOptions) PageView {
	display := draft.Display()
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	goal := display.GoalValue()
	progress := Progress(display.Raised, goal)
	tmpl := SelectTemplate(display.Role, display.Layout)
	addressable := draft.Handle != "" && !opts.Preview

	// Until a page is addressable its share outputs point at the preview.
	shared := draft
	if !addressable {
		shared.Handle = ""
	}

	view := PageView{
		Page:            display,
		DescriptionHTML: Description(display.Description),
		Template:        tmpl,
		Panel:           SelectPanel(tmpl, display.Role, goal),
		Progress:        progress,
		Raised:          Money(display.Raised),
		Goal:            Money(goal),
		Supporters:      Count(display.Supporters),
		Owner:           opts.Viewer.CanEdit(),
		Preview:         opts.Preview,
		Addressable:     addressable,
		Share:           share.For(opts.BaseURL, shared),
		Payment:         payments.Labels(display.Role, display.Name, opts.Amount),
		Methods:         payments.Methods(),
		Currencies:      payments.Currencies(),
		QuickAmounts:    payments.QuickAmounts,
	}
	if progress.Over {
		view.OverBy = Money(progress.OverBy)
	}
	if display.Role == domain.RoleCrowdfunder && display.Deadline != "" {
		view.DaysLeft, _ = DaysLeft(display.Deadline, now)
	}
	if view.Owner {
		view.EditURL = EditURL(display.PageDraft, !opts.Preview)
		if opts.Preview {
			view.BackURL = EditURL(display.PageDraft, false)
		}
	}
	return view
}

// EditURL returns to the preview step of the wizard for this page.
func EditURL(d domain.PageDraft, withHandle bool) string {
	u := "/create-page?role=" + url.QueryEscape(string(d.Role)) + "&layout=" + url.QueryEscape(string(d.Layout)) + "&step=4"
	if withHandle && d.Handle != "" {
		u += "&handle=" + url.QueryEscape(d.Handle)
	}
	return u
}
