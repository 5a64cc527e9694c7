package wizard

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

// Step is a wizard position, 1 through 4.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepCustomize
	StepPayment
	StepPreview
)

// Steps lists every step in order.
var Steps = []Step{StepBasicInfo, StepCustomize, StepPayment, StepPreview}

var stepTitles = map[Step]string{
	StepBasicInfo: "Basic Info",
	StepCustomize: "Customize",
	StepPayment:   "Payment",
	StepPreview:   "Preview",
}

func (s Step) Title() string {
	return stepTitles[s.Clamp()]
}

// Clamp forces s into [1,4].
func (s Step) Clamp() Step {
	switch {
	case s < StepBasicInfo:
		return StepBasicInfo
	case s > StepPreview:
		return StepPreview
	}
	return s
}

// ParseStep reads a step query value. Non-numeric or empty input yields step 1.
func ParseStep(raw string) Step {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return StepBasicInfo
	}
	return Step(n).Clamp()
}

// RouteParams are the /create-page query parameters.
type RouteParams struct {
	Role   string
	Step   Step
	Handle string
	Name   string
	Layout string
}

// ParamsFromQuery extracts RouteParams from a query string.
func ParamsFromQuery(q url.Values) RouteParams {
	return RouteParams{
		Role:   q.Get("role"),
		Step:   ParseStep(q.Get("step")),
		Handle: q.Get("handle"),
		Name:   q.Get("name"),
		Layout: q.Get("layout"),
	}
}

// Reconcile merges route parameters into a stored draft. Stored values win over the name and
// handle params, while a valid role or layout param overrides the stored choice.
func Reconcile(params RouteParams, stored domain.PageDraft) (domain.PageDraft, Step) {
	draft := stored

	paramRole, paramErr := domain.ParseRole(params.Role)
	switch {
	case stored.Role.Valid():
	case paramErr == nil:
		draft.Role = paramRole
	default:
		draft.Role = domain.RoleCreator
	}
	draft = draft.Normalize()
	if paramErr == nil && paramRole != draft.Role {
		draft = draft.WithRole(paramRole)
	}

	if draft.Name == "" {
		draft.Name = strings.TrimSpace(params.Name)
	}
	if draft.Handle == "" {
		draft.Handle = domain.SanitizeHandle(params.Handle)
	}
	if layout := domain.Layout(strings.ToLower(strings.TrimSpace(params.Layout))); layout != "" && domain.HasLayout(draft.Role, layout) {
		draft.Layout = layout
	}

	step := params.Step
	if step == 0 {
		step = StepBasicInfo
	}
	return draft.Normalize(), step.Clamp()
}

// StepURL is the resumable address of a wizard step.
func StepURL(draft domain.PageDraft, step Step) string {
	var b strings.Builder
	b.WriteString("/create-page?role=")
	b.WriteString(url.QueryEscape(string(draft.Role)))
	b.WriteString("&step=")
	b.WriteString(strconv.Itoa(int(step.Clamp())))
	if draft.Handle != "" {
		b.WriteString("&handle=")
		b.WriteString(url.QueryEscape(draft.Handle))
	}
	return b.String()
}

// PreviewURL is the handle-less preview address.
func PreviewURL(draft domain.PageDraft, owner bool) string {
	u := "/public-page?role=" + url.QueryEscape(string(draft.Role)) + "&layout=" + url.QueryEscape(string(draft.Layout))
	if owner {
		u += "&owner=true"
	}
	return u
}

// HandleSelectionURL is where Back from the first step leads.
func HandleSelectionURL(role domain.Role) string {
	return "/handle-selection?role=" + url.QueryEscape(string(role))
}
