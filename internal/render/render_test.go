package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/dashboard"
	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
)

var testNow = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func goal(v float64) *float64 { return &v }

func TestSelectTemplate(t *testing.T) {
	cases := []struct {
		role   domain.Role
		layout domain.Layout
		want   Template
	}{
		{domain.RoleCreator, "creative", TemplateHero},
		{domain.RoleCreator, "community", TemplateCard},
		{domain.RoleCreator, "minimal", TemplateDefault},
		{domain.RoleBusiness, "store", TemplateHero},
		{domain.RoleBusiness, "service", TemplateCard},
		{domain.RoleCrowdfunder, "milestone", TemplateHero},
		{domain.RoleCrowdfunder, "story", TemplateCard},
		{domain.RoleCrowdfunder, "campaign", TemplateDefault},
		{domain.RoleBusiness, "creative", TemplateDefault},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SelectTemplate(tc.role, tc.layout), "%s/%s", tc.role, tc.layout)
	}
}

func TestSelectPanel(t *testing.T) {
	assert.Equal(t, PanelStats, SelectPanel(TemplateHero, domain.RoleCrowdfunder, 50000))
	assert.Equal(t, PanelStats, SelectPanel(TemplateDefault, domain.RoleCreator, 1))
	assert.Equal(t, PanelPayment, SelectPanel(TemplateDefault, domain.RoleCreator, 0))
	assert.Equal(t, PanelPayment, SelectPanel(TemplateHero, domain.RoleBusiness, 50000))
	assert.Equal(t, PanelPayment, SelectPanel(TemplateCard, domain.RoleCrowdfunder, 50000))
	assert.Equal(t, PanelPayment, SelectPanel(TemplateCard, domain.RoleCreator, 1))
}

func TestBuildPageCardAlwaysShowsPayment(t *testing.T) {
	draft := domain.PageDraft{Role: domain.RoleCrowdfunder, Name: "Green", Layout: "story", Goal: goal(50000)}
	view := BuildPage(draft, PageOptions{Now: testNow})
	assert.Equal(t, TemplateCard, view.Template)
	assert.Equal(t, PanelPayment, view.Panel)
}

func TestBuildPagePreviewSharesPreviewAddress(t *testing.T) {
	draft := domain.PageDraft{Role: domain.RoleCrowdfunder, Handle: "greenfund", Name: "Green", Layout: "milestone"}

	view := BuildPage(draft, PageOptions{BaseURL: "https://onclick.test", Preview: true, Now: testNow})
	assert.Equal(t, "https://onclick.test/public-page?role=crowdfunder&layout=milestone", view.Share.URL)
	assert.Empty(t, view.Share.QR)
	assert.Contains(t, view.Share.Embed, "public-page?role=crowdfunder")

	view = BuildPage(draft, PageOptions{BaseURL: "https://onclick.test", Now: testNow})
	assert.Equal(t, "https://onclick.test/greenfund", view.Share.URL)
	assert.Equal(t, "/greenfund/qr.png", view.Share.QR)
}

func TestProgress(t *testing.T) {
	p := Progress(30000, 50000)
	assert.InDelta(t, 60, p.Percent, 0.001)
	assert.InDelta(t, 60, p.Bar, 0.001)
	assert.False(t, p.Over)

	p = Progress(60000, 50000)
	assert.InDelta(t, 120, p.Percent, 0.001)
	assert.InDelta(t, 100, p.Bar, 0.001)
	assert.True(t, p.Over)
	assert.Equal(t, "$10,000", Money(p.OverBy))

	assert.Equal(t, ProgressView{}, Progress(100, 0))
}

func TestDaysLeft(t *testing.T) {
	got, ok := DaysLeft("2025-04-16", testNow)
	require.True(t, ok)
	assert.Equal(t, "15 days left", got)

	got, ok = DaysLeft("2025-03-01", testNow)
	require.True(t, ok)
	assert.Equal(t, "Campaign ended", got)

	_, ok = DaysLeft("next week", testNow)
	assert.False(t, ok)
}

func TestMoneyAndCount(t *testing.T) {
	assert.Equal(t, "$50,000", Money(50000))
	assert.Equal(t, "$12.50", Money(12.5))
	assert.Equal(t, "1,234", Count(1234))
}

func TestDescriptionSanitizes(t *testing.T) {
	out := string(Description("Hello **world**\n\n<script>alert(1)</script>"))
	assert.Contains(t, out, "<strong>world</strong>")
	assert.NotContains(t, out, "<script")
}

func TestBuildPageOwnerFlags(t *testing.T) {
	draft := domain.PageDraft{Role: domain.RoleCreator, Handle: "alice", Name: "Alice", Layout: "creative"}

	view := BuildPage(draft, PageOptions{BaseURL: "https://onclick.test", Now: testNow})
	assert.False(t, view.Owner)
	assert.Empty(t, view.EditURL)
	assert.True(t, view.Addressable)
	assert.Equal(t, "https://onclick.test/alice", view.Share.URL)

	view = BuildPage(draft, PageOptions{Viewer: Viewer{OwnsHandle: true}, Now: testNow})
	assert.True(t, view.Owner)
	assert.Equal(t, "/create-page?role=creator&layout=creative&step=4&handle=alice", view.EditURL)
	assert.Empty(t, view.BackURL)

	view = BuildPage(draft, PageOptions{Viewer: Viewer{GlobalOwner: true}, Preview: true, Now: testNow})
	assert.True(t, view.Owner)
	assert.False(t, view.Addressable)
	assert.Equal(t, "/create-page?role=creator&layout=creative&step=4", view.BackURL)
}

func TestBuildPageUnsetGoalUsesPaymentPanel(t *testing.T) {
	view := BuildPage(domain.PageDraft{Role: domain.RoleCreator, Layout: "minimal"}, PageOptions{Now: testNow})
	assert.Equal(t, PanelPayment, view.Panel)
	assert.Equal(t, TemplateDefault, view.Template)
	assert.Equal(t, "Sarah Chen", view.Page.Name)
	assert.Equal(t, "Donate $0", view.Payment.Button)
}

func TestBuildPageCrowdfunderStats(t *testing.T) {
	draft := domain.PageDraft{
		Role:     domain.RoleCrowdfunder,
		Name:     "Green",
		Goal:     goal(50000),
		Raised:   60000,
		Deadline: "2025-04-16",
	}
	view := BuildPage(draft, PageOptions{Now: testNow, Amount: "25"})
	assert.Equal(t, PanelStats, view.Panel)
	assert.True(t, view.Progress.Over)
	assert.Equal(t, "$10,000", view.OverBy)
	assert.Equal(t, "$50,000", view.Goal)
	assert.Equal(t, "15 days left", view.DaysLeft)
	assert.Equal(t, "Support $25", view.Payment.Button)
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(zap.NewNop())
	require.NoError(t, err)
	return r
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return doc
}

func TestRendererPublicPage(t *testing.T) {
	r := newRenderer(t)
	for _, name := range []string{"role_selection", "handle_selection", "create_page", "public_page", "creator_dashboard", "business_dashboard", "crowdfunder_dashboard", "error"} {
		assert.True(t, r.Has(name), name)
	}

	draft := domain.PageDraft{Role: domain.RoleCrowdfunder, Handle: "green", Name: "Green", Layout: "milestone", Goal: goal(50000)}
	view := PublicPageView{Base: Base{Title: "Green"}, PageView: BuildPage(draft, PageOptions{Now: testNow})}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/green", nil)
	r.Page(rec, req, http.StatusOK, "public_page", view)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	doc := parse(t, rec)
	assert.Equal(t, 1, doc.Find("header.navbar").Length())
	assert.Equal(t, "hero", doc.Find("article.page").AttrOr("data-template", ""))
	assert.Equal(t, 1, doc.Find(`[data-panel="stats"]`).Length())
	assert.Equal(t, 0, doc.Find(".owner-edit").Length())
	assert.Equal(t, 3, doc.Find(`input[name="method"]`).Length())
	assert.Equal(t, "/green/qr.png", doc.Find(".share-qr").AttrOr("src", ""))
}

func TestRendererHTMXRendersContentOnly(t *testing.T) {
	r := newRenderer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/role-selection", nil)
	req = req.WithContext(requestctx.WithHTMX(req.Context(), true))

	r.Page(rec, req, http.StatusOK, "role_selection", RoleSelectionView{Roles: RoleCards()})

	doc := parse(t, rec)
	assert.Equal(t, 0, doc.Find("header.navbar").Length())
	assert.Equal(t, 3, doc.Find("a.role-card").Length())
	assert.Equal(t, "/handle-selection?role=business", doc.Find(`a.role-card[data-role="business"]`).AttrOr("href", ""))
}

func TestRendererWizardSteps(t *testing.T) {
	r := newRenderer(t)
	draft := domain.NewDraft(domain.RoleCrowdfunder)
	draft.Handle = "green"

	render := func(view WizardView) *goquery.Document {
		rec := httptest.NewRecorder()
		r.Page(rec, httptest.NewRequest(http.MethodGet, "/create-page", nil), http.StatusOK, "create_page", view)
		require.Equal(t, http.StatusOK, rec.Code)
		return parse(t, rec)
	}

	doc := render(WizardView{Step: 1, Draft: draft, IsFirst: true})
	assert.Equal(t, 1, doc.Find(`input[name="deadline"]`).Length())
	assert.Equal(t, 1, doc.Find(`input[name="goal"]`).Length())
	assert.Equal(t, "/create-page/next", doc.Find("button.next").AttrOr("formaction", ""))

	preview := BuildPage(draft, PageOptions{Preview: true, Now: testNow})
	doc = render(WizardView{Step: 4, Draft: draft, Preview: &preview, IsLast: true})
	assert.Equal(t, 1, doc.Find(".wizard-preview article.page").Length())
	assert.Contains(t, doc.Find(".live-at").Text(), "onclick/green")
	assert.Equal(t, "/create-page/publish", doc.Find("button.publish").AttrOr("formaction", ""))
}

func TestRendererDashboards(t *testing.T) {
	r := newRenderer(t)
	data, err := dashboard.Load()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	next, _ := data.Crowdfunder.NextMilestone()
	r.Page(rec, httptest.NewRequest(http.MethodGet, "/crowdfunder-dashboard", nil), http.StatusOK, "crowdfunder_dashboard", CrowdfunderDashboardView{
		Data:          data.Crowdfunder,
		Progress:      Progress(data.Crowdfunder.Raised, data.Crowdfunder.Goal),
		NextMilestone: &next,
	})
	doc := parse(t, rec)
	assert.Equal(t, 4, doc.Find(".milestones li").Length())
	assert.Contains(t, doc.Find(".next-milestone").Text(), "Testing & Optimization")
}

func TestPartialAndUnknownPage(t *testing.T) {
	r := newRenderer(t)

	rec := httptest.NewRecorder()
	r.Partial(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "handle_status", HandleStatus{Handle: "bob", Status: "unavailable", Message: "Handle is taken"})
	doc := parse(t, rec)
	sel := doc.Find("#handle-status")
	assert.True(t, sel.HasClass("handle-status--unavailable"))
	assert.Equal(t, "Handle is taken", sel.Text())

	rec = httptest.NewRecorder()
	r.Page(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "missing", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
