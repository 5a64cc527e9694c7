package domain

// Placeholder is the sample content a page shows until the creator fills a field in.
type Placeholder struct {
	Name        string
	Title       string
	Description string
	Avatar      string
	Banner      string
	Handle      string
	Theme       string
	Raised      float64
	Goal        float64
	Supporters  int
}

var placeholders = map[Role]Placeholder{
	RoleCrowdfunder: {
		Name:        "EcoTech Solutions",
		Title:       "Sustainable Blockchain Infrastructure",
		Description: "Building the next generation of eco-friendly blockchain infrastructure. Help us create a greener future for Web3!",
		Avatar:      "https://images.unsplash.com/photo-1451187580459-43490279c0fa?w=150&h=150&fit=crop",
		Banner:      "https://images.unsplash.com/photo-1451187580459-43490279c0fa?w=1200&h=400&fit=crop",
		Handle:      "ecotech",
		Theme:       "#2E86AB",
		Raised:      30000,
		Goal:        50000,
		Supporters:  234,
	},
	RoleBusiness: {
		Name:        "TechStart Inc.",
		Title:       "Innovative Web3 Solutions",
		Description: "Providing cutting-edge Web3 solutions for businesses worldwide. Accept payments seamlessly with crypto or fiat.",
		Avatar:      "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=150&h=150&fit=crop",
		Banner:      "https://images.unsplash.com/photo-1486406146926-c627a92ad1ab?w=1200&h=400&fit=crop",
		Handle:      "techstart",
		Theme:       "#4A9BC7",
		Raised:      45230,
		Goal:        0,
		Supporters:  156,
	},
	RoleCreator: {
		Name:        "Sarah Chen",
		Title:       "Digital Artist & Creator",
		Description: "Creating beautiful digital art and helping other artists grow their skills. Your support helps me continue creating and sharing knowledge with the community.",
		Avatar:      "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=150&h=150&fit=crop&crop=face",
		Banner:      "https://images.unsplash.com/photo-1558618047-3c8c76ca7d13?w=1200&h=400&fit=crop",
		Handle:      "sarahchen",
		Theme:       "#8CCDEB",
		Raised:      2847,
		Goal:        5000,
		Supporters:  127,
	},
}

// Placeholders returns the sample content for the role.
func Placeholders(r Role) Placeholder {
	if p, ok := placeholders[r]; ok {
		return p
	}
	return placeholders[RoleCreator]
}

// PlaceholderDraft renders the placeholder as a complete draft.
func PlaceholderDraft(r Role) PageDraft {
	if !r.Valid() {
		r = RoleCreator
	}
	p := Placeholders(r)
	d := PageDraft{
		Role:        r,
		Handle:      p.Handle,
		Name:        p.Name,
		Description: p.Description,
		Banner:      p.Banner,
		Avatar:      p.Avatar,
		Theme:       p.Theme,
		Layout:      DefaultLayout(r),
		Raised:      p.Raised,
		Supporters:  p.Supporters,
	}
	if p.Goal > 0 {
		goal := p.Goal
		d.Goal = &goal
	}
	return d
}

// Display is a draft with every empty presentational field filled from the placeholders.
type Display struct {
	PageDraft
	Title string
}

// Display fills empty fields so a draft always renders. The goal is never substituted:
// an unset goal stays unset so the page keeps its single payment panel.
func (d PageDraft) Display() Display {
	d = d.Normalize()
	p := Placeholders(d.Role)
	if d.Name == "" {
		d.Name = p.Name
	}
	if d.Description == "" {
		d.Description = p.Description
	}
	if d.Avatar == "" {
		d.Avatar = p.Avatar
	}
	if d.Banner == "" {
		d.Banner = p.Banner
	}
	if d.Raised == 0 {
		d.Raised = p.Raised
	}
	if d.Supporters == 0 {
		d.Supporters = p.Supporters
	}
	title := p.Title
	if d.BusinessType != "" {
		title = d.BusinessType
	}
	return Display{PageDraft: d, Title: title}
}
