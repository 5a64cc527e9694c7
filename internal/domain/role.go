package domain

import (
	"errors"
	"strings"
)

// Role determines which themes, layouts and fields a page offers.
type Role string

const (
	RoleCreator     Role = "creator"
	RoleBusiness    Role = "business"
	RoleCrowdfunder Role = "crowdfunder"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Roles lists every role in display order.
var Roles = []Role{RoleCreator, RoleBusiness, RoleCrowdfunder}

// ParseRole parses a role case-insensitively.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleCreator:
		return RoleCreator, nil
	case RoleBusiness:
		return RoleBusiness, nil
	case RoleCrowdfunder:
		return RoleCrowdfunder, nil
	}
	return "", ErrUnknownRole
}

// RoleOrDefault parses value and falls back to creator.
func RoleOrDefault(value string) Role {
	role, err := ParseRole(value)
	if err != nil {
		return RoleCreator
	}
	return role
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Layout identifies a visual template variant within a role.
type Layout string

// LayoutOption is a layout with its display label.
type LayoutOption struct {
	ID    Layout
	Label string
}

var layouts = map[Role][]LayoutOption{
	RoleCreator: {
		{ID: "minimal", Label: "Minimal"},
		{ID: "creative", Label: "Creative"},
		{ID: "community", Label: "Community"},
	},
	RoleBusiness: {
		{ID: "minimal", Label: "Professional"},
		{ID: "store", Label: "Store"},
		{ID: "service", Label: "Service"},
	},
	RoleCrowdfunder: {
		{ID: "campaign", Label: "Campaign"},
		{ID: "milestone", Label: "Milestone"},
		{ID: "story", Label: "Story"},
	},
}

var themes = map[Role][]string{
	RoleCreator:     {"#8CCDEB", "#A78BFA", "#F472B6", "#34D399", "#60A5FA", "#FB7185"},
	RoleBusiness:    {"#4A9BC7", "#0EA5E9", "#0891B2", "#0369A1", "#075985", "#0C4A6E"},
	RoleCrowdfunder: {"#2E86AB", "#0F4C75", "#062E47", "#E63946", "#F77F00", "#FCBF49"},
}

// Layouts returns the layouts available to the role.
func Layouts(r Role) []LayoutOption {
	return append([]LayoutOption(nil), layouts[r]...)
}

// Themes returns the theme palette available to the role.
func Themes(r Role) []string {
	return append([]string(nil), themes[r]...)
}

// DefaultLayout is the first layout of the role.
func DefaultLayout(r Role) Layout {
	if opts := layouts[r]; len(opts) > 0 {
		return opts[0].ID
	}
	return layouts[RoleCreator][0].ID
}

// DefaultTheme is the first palette colour of the role.
func DefaultTheme(r Role) string {
	if palette := themes[r]; len(palette) > 0 {
		return palette[0]
	}
	return themes[RoleCreator][0]
}

// HasLayout reports whether layout belongs to the role.
func HasLayout(r Role, layout Layout) bool {
	for _, opt := range layouts[r] {
		if opt.ID == layout {
			return true
		}
	}
	return false
}

// HasTheme reports whether theme belongs to the role's palette, ignoring case.
func HasTheme(r Role, theme string) bool {
	for _, c := range themes[r] {
		if strings.EqualFold(c, theme) {
			return true
		}
	}
	return false
}
