package render

import (
	"github.com/onclick-pay/onclick-web/internal/dashboard"
	"github.com/onclick-pay/onclick-web/internal/domain"
)

// RoleCard is one option on the role selection page.
type RoleCard struct {
	Role        domain.Role
	Title       string
	Subtitle    string
	Description string
	Features    []string
	URL         string
}

var roleCards = []RoleCard{
	{
		Role:        domain.RoleCreator,
		Title:       "Creator",
		Subtitle:    "Digital Artist & Content Creator",
		Description: "Create your personalized support page. Accept donations, tips, and build your community with instant crypto payments.",
		Features:    []string{"Personalized payment page", "Accept donations & tips", "Share via QR code & link", "Instant crypto settlements"},
	},
	{
		Role:        domain.RoleBusiness,
		Title:       "Business",
		Subtitle:    "E-commerce & Services",
		Description: "Create your business payment page. Accept payments from customers worldwide with fiat or crypto.",
		Features:    []string{"Business payment page", "Fiat & crypto payments", "Global customer reach", "Direct wallet settlements"},
	},
	{
		Role:        domain.RoleCrowdfunder,
		Title:       "Crowdfunder",
		Subtitle:    "Campaign & Fundraising",
		Description: "Create your crowdfunding page. Launch campaigns, track progress, and receive transparent donations.",
		Features:    []string{"Crowdfunding page", "Goal tracking & progress", "Supporter messages", "Transparent donations"},
	},
}

// RoleCards returns the role selection options with their next-step links.
func RoleCards() []RoleCard {
	out := make([]RoleCard, len(roleCards))
	for i, c := range roleCards {
		c.Features = append([]string(nil), c.Features...)
		c.URL = "/handle-selection?role=" + string(c.Role)
		out[i] = c
	}
	return out
}

type RoleSelectionView struct {
	Base
	Roles []RoleCard
}

// HandleStatus is the availability widget state.
type HandleStatus struct {
	Handle  string
	Status  string
	Message string
}

type HandleSelectionView struct {
	Base
	Role   domain.Role
	Name   string
	Handle string
	Status HandleStatus
	Errors map[string]string
}

// StepTab is one entry of the wizard progress header.
type StepTab struct {
	Number int
	Title  string
	Active bool
	Done   bool
}

type WizardView struct {
	Base
	Step            int
	Steps           []StepTab
	Draft           domain.PageDraft
	Goal            string
	Layouts         []domain.LayoutOption
	Themes          []string
	Errors          map[string]string
	Preview         *PageView
	PublishedHandle string
	IsFirst         bool
	IsLast          bool
}

type PublicPageView struct {
	Base
	PageView
	Receipt *ReceiptView
}

// ReceiptView is the payment confirmation fragment.
type ReceiptView struct {
	TxID     string
	Amount   string
	Currency string
	Provider string
	Theme    string
}

type CreatorDashboardView struct {
	Base
	Data     dashboard.Creator
	Progress ProgressView
}

type BusinessDashboardView struct {
	Base
	Data dashboard.Business
}

type CrowdfunderDashboardView struct {
	Base
	Data          dashboard.Crowdfunder
	Progress      ProgressView
	NextMilestone *dashboard.Milestone
}

type ErrorView struct {
	Base
	Status  int
	Message string
}
