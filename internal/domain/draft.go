package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DeadlineLayout is the wire format of PageDraft.Deadline.
const DeadlineLayout = "2006-01-02"

var ErrDeadlineFormat = errors.New("domain: deadline must be a YYYY-MM-DD date")

// PageDraft is the in-progress or published configuration of a single page.
type PageDraft struct {
	Role          Role      `json:"role"`
	Handle        string    `json:"handle"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Banner        string    `json:"banner,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Theme         string    `json:"theme"`
	Layout        Layout    `json:"layout"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	Goal          *float64  `json:"goal,omitempty"`
	Deadline      string    `json:"deadline,omitempty"`
	BusinessType  string    `json:"businessType,omitempty"`
	Raised        float64   `json:"raised,omitempty"`
	Supporters    int       `json:"supporters,omitempty"`
	MetadataURI   string    `json:"metadataUri,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewDraft returns an empty draft carrying the role's default theme and layout.
func NewDraft(role Role) PageDraft {
	if !role.Valid() {
		role = RoleCreator
	}
	return PageDraft{Role: role, Theme: DefaultTheme(role), Layout: DefaultLayout(role)}
}

// Normalize resets layout and theme to the role defaults when they do not belong to the role.
func (d PageDraft) Normalize() PageDraft {
	d.Role = RoleOrDefault(string(d.Role))
	if !HasLayout(d.Role, d.Layout) {
		d.Layout = DefaultLayout(d.Role)
	}
	if !HasTheme(d.Role, d.Theme) {
		d.Theme = DefaultTheme(d.Role)
	}
	d.Theme = strings.ToUpper(d.Theme)
	return d
}

// WithRole switches role. Theme and layout reset whenever the role changes.
func (d PageDraft) WithRole(role Role) PageDraft {
	role = RoleOrDefault(string(role))
	if RoleOrDefault(string(d.Role)) == role {
		return d.Normalize()
	}
	d.Role = role
	d.Theme = DefaultTheme(role)
	d.Layout = DefaultLayout(role)
	return d.Normalize()
}

// GoalValue returns the goal or zero when unset.
func (d PageDraft) GoalValue() float64 {
	if d.Goal == nil {
		return 0
	}
	return *d.Goal
}

// DeadlineTime parses the deadline when set.
func (d PageDraft) DeadlineTime() (time.Time, bool) {
	if strings.TrimSpace(d.Deadline) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DeadlineLayout, strings.TrimSpace(d.Deadline))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Patch carries the fields owned by one wizard step. Nil fields are left untouched.
type Patch struct {
	Role          *Role    `json:"role,omitempty"`
	Handle        *string  `json:"handle,omitempty"`
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Banner        *string  `json:"banner,omitempty"`
	Avatar        *string  `json:"avatar,omitempty"`
	Theme         *string  `json:"theme,omitempty"`
	Layout        *Layout  `json:"layout,omitempty"`
	WalletAddress *string  `json:"walletAddress,omitempty"`
	Goal          *float64 `json:"goal,omitempty"`
	ClearGoal     bool     `json:"clearGoal,omitempty"`
	Deadline      *string  `json:"deadline,omitempty"`
	BusinessType  *string  `json:"businessType,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply merge-patches the draft. A role change resets theme and layout before any theme or
// layout carried by the same patch is applied.
func (d PageDraft) Apply(p Patch) PageDraft {
	if p.Role != nil && p.Role.Valid() {
		d = d.WithRole(*p.Role)
	}
	if p.Handle != nil {
		d.Handle = SanitizeHandle(*p.Handle)
	}
	if p.Name != nil {
		d.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		d.Description = strings.TrimSpace(*p.Description)
	}
	if p.Banner != nil {
		d.Banner = strings.TrimSpace(*p.Banner)
	}
	if p.Avatar != nil {
		d.Avatar = strings.TrimSpace(*p.Avatar)
	}
	if p.Theme != nil {
		d.Theme = strings.TrimSpace(*p.Theme)
	}
	if p.Layout != nil {
		d.Layout = *p.Layout
	}
	if p.WalletAddress != nil {
		d.WalletAddress = strings.TrimSpace(*p.WalletAddress)
	}
	if p.ClearGoal {
		d.Goal = nil
	} else if p.Goal != nil {
		goal := *p.Goal
		d.Goal = &goal
	}
	if p.Deadline != nil {
		d.Deadline = strings.TrimSpace(*p.Deadline)
	}
	if p.BusinessType != nil {
		d.BusinessType = strings.TrimSpace(*p.BusinessType)
	}
	return d.Normalize()
}

// ValidationError reports per-field problems found before publishing.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "domain: invalid page: " + strings.Join(parts, "; ")
}

// ValidateForPublish is the only validation gate; intermediate steps accept incomplete drafts.
// An empty handle is accepted because it selects the unaddressable preview path.
func ValidateForPublish(d PageDraft) error {
	fields := make(map[string]string)
	if strings.TrimSpace(d.Name) == "" {
		fields["name"] = "name is required"
	}
	if d.Handle != "" {
		if err := ValidateHandle(d.Handle); err != nil {
			fields["handle"] = strings.TrimPrefix(err.Error(), "domain: ")
		}
	}
	if d.Goal != nil {
		switch goal := *d.Goal; {
		case math.IsNaN(goal) || math.IsInf(goal, 0):
			fields["goal"] = "goal must be a number"
		case goal < 0:
			fields["goal"] = "goal must not be negative"
		}
	}
	if d.Deadline != "" {
		if _, ok := d.DeadlineTime(); !ok {
			fields["deadline"] = strings.TrimPrefix(ErrDeadlineFormat.Error(), "domain: ")
		}
	}
	if err := ValidateWalletAddress(d.WalletAddress); err != nil {
		fields["walletAddress"] = strings.TrimPrefix(err.Error(), "domain: ")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
