package domain

import (
	"errors"
	"math"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestRoleTables(t *testing.T) {
	if DefaultLayout(RoleCrowdfunder) != "campaign" || DefaultLayout(RoleBusiness) != "minimal" || DefaultLayout(RoleCreator) != "minimal" {
		t.Fatalf("unexpected default layouts")
	}
	if DefaultTheme(RoleBusiness) != "#4A9BC7" {
		t.Fatalf("business default theme = %s", DefaultTheme(RoleBusiness))
	}
	if Layouts(RoleBusiness)[0].Label != "Professional" {
		t.Fatalf("business minimal label = %s", Layouts(RoleBusiness)[0].Label)
	}
	if _, err := ParseRole("Donor"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected unknown role error")
	}
	if RoleOrDefault("CROWDFUNDER") != RoleCrowdfunder || RoleOrDefault("") != RoleCreator {
		t.Fatalf("unexpected RoleOrDefault behaviour")
	}
}

func TestWithRoleResetsThemeAndLayout(t *testing.T) {
	d := NewDraft(RoleCreator)
	d.Theme = "#F472B6"
	d.Layout = "creative"

	switched := d.WithRole(RoleCrowdfunder)
	if switched.Theme != "#2E86AB" || switched.Layout != "campaign" {
		t.Fatalf("expected crowdfunder defaults, got %s/%s", switched.Theme, switched.Layout)
	}

	same := d.WithRole(RoleCreator)
	if same.Theme != "#F472B6" || same.Layout != "creative" {
		t.Fatalf("same role must keep choices, got %s/%s", same.Theme, same.Layout)
	}
}

func TestNormalizeRejectsForeignLayout(t *testing.T) {
	d := PageDraft{Role: RoleBusiness, Layout: "story", Theme: "#E63946"}
	n := d.Normalize()
	if n.Layout != "minimal" || n.Theme != "#4A9BC7" {
		t.Fatalf("expected business defaults, got %s/%s", n.Layout, n.Theme)
	}
}

func TestApplyOnlyTouchesOwnedFields(t *testing.T) {
	goal := 1200.0
	d := NewDraft(RoleCreator)
	d.Handle = "sarahchen"
	d.Theme = "#A78BFA"
	d.Layout = "community"
	d.Goal = &goal

	patched := d.Apply(Patch{Description: strPtr("new bio")})
	if patched.Description != "new bio" {
		t.Fatalf("description not applied")
	}
	if patched.Theme != d.Theme || patched.Layout != d.Layout || patched.Handle != d.Handle || patched.GoalValue() != 1200 {
		t.Fatalf("unowned fields changed: %+v", patched)
	}

	patched = patched.Apply(Patch{Handle: strPtr("  Sarah Chen!! ")})
	if patched.Handle != "sarahchen" {
		t.Fatalf("handle not sanitised: %q", patched.Handle)
	}

	patched = patched.Apply(Patch{ClearGoal: true})
	if patched.Goal != nil {
		t.Fatalf("expected goal cleared")
	}
}

func TestApplyRoleThenTheme(t *testing.T) {
	role := RoleBusiness
	d := NewDraft(RoleCreator).Apply(Patch{Role: &role, Theme: strPtr("#0891b2")})
	if d.Role != RoleBusiness || d.Theme != "#0891B2" || d.Layout != "minimal" {
		t.Fatalf("unexpected draft %+v", d)
	}
}

func TestRoleIsCanonicalised(t *testing.T) {
	mixed := Role("Business")
	d := NewDraft(RoleCreator).Apply(Patch{Role: &mixed})
	if d.Role != RoleBusiness || d.Theme != DefaultTheme(RoleBusiness) || d.Layout != "minimal" {
		t.Fatalf("unexpected draft %+v", d)
	}
	d = PageDraft{Role: "CROWDFUNDER", Layout: "story", Theme: "#e63946"}.Normalize()
	if d.Role != RoleCrowdfunder || d.Layout != "story" || d.Theme != "#E63946" {
		t.Fatalf("unexpected normalized draft %+v", d)
	}
}

func TestValidateForPublishRejectsNonFiniteGoal(t *testing.T) {
	for _, goal := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		g := goal
		err := ValidateForPublish(PageDraft{Role: RoleCreator, Name: "Sarah", Goal: &g})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Fields["goal"] == "" {
			t.Fatalf("goal %v: expected goal field error, got %v", goal, err)
		}
	}
}

func TestValidateForPublish(t *testing.T) {
	goal := -1.0
	d := PageDraft{
		Role:          RoleCreator,
		Handle:        "ab",
		Goal:          &goal,
		Deadline:      "next week",
		WalletAddress: "0x123",
	}
	err := ValidateForPublish(d)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "handle", "goal", "deadline", "walletAddress"} {
		if _, ok := vErr.Fields[field]; !ok {
			t.Errorf("expected %s to be flagged", field)
		}
	}

	ok := PageDraft{Role: RoleCreator, Name: "Sarah", Deadline: "2030-01-31"}
	if err := ValidateForPublish(ok); err != nil {
		t.Fatalf("unexpected error for handle-less draft: %v", err)
	}
}

func TestDisplayFillsPlaceholdersButNotGoal(t *testing.T) {
	d := PageDraft{Role: RoleCreator, BusinessType: ""}
	view := d.Display()
	if view.Name != "Sarah Chen" || view.Title != "Digital Artist & Creator" {
		t.Fatalf("unexpected placeholder fill %q / %q", view.Name, view.Title)
	}
	if view.Goal != nil {
		t.Fatalf("goal must not be substituted")
	}

	biz := PageDraft{Role: RoleBusiness, Name: "Acme", BusinessType: "Coffee Roaster"}.Display()
	if biz.Title != "Coffee Roaster" || biz.Name != "Acme" {
		t.Fatalf("unexpected business display %+v", biz)
	}

	ph := PlaceholderDraft(RoleCrowdfunder)
	if ph.GoalValue() != 50000 || ph.Raised != 30000 || ph.Handle != "ecotech" {
		t.Fatalf("unexpected crowdfunder placeholder %+v", ph)
	}
	if PlaceholderDraft(RoleBusiness).Goal != nil {
		t.Fatalf("business placeholder has no goal")
	}
}

func TestValidateWalletAddress(t *testing.T) {
	valid := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	if err := ValidateWalletAddress(valid); err != nil {
		t.Fatalf("checksummed address rejected: %v", err)
	}
	if got := ChecksumAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"); got != valid {
		t.Fatalf("ChecksumAddress = %s", got)
	}
	if err := ValidateWalletAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"); err != nil {
		t.Fatalf("lowercase address rejected: %v", err)
	}
	if err := ValidateWalletAddress("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"); !errors.Is(err, ErrWalletChecksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}
	if err := ValidateWalletAddress("5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"); !errors.Is(err, ErrWalletFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if err := ValidateWalletAddress(""); err != nil {
		t.Fatalf("empty address must be accepted")
	}
}
