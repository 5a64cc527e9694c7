// Package dashboard serves the mocked analytics shown on the role dashboards.
package dashboard

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

//go:embed fixtures.yaml
var fixtureYAML []byte

type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Banner      string `yaml:"banner" json:"banner,omitempty"`
	Avatar      string `yaml:"avatar" json:"avatar,omitempty"`
	Theme       string `yaml:"theme" json:"theme,omitempty"`
}

type Payment struct {
	ID        int     `yaml:"id" json:"id"`
	Amount    float64 `yaml:"amount" json:"amount"`
	Message   string  `yaml:"message" json:"message"`
	Supporter string  `yaml:"supporter" json:"supporter"`
	Date      string  `yaml:"date" json:"date"`
}

type Creator struct {
	Profile        `yaml:",inline"`
	Goal           float64   `yaml:"goal" json:"goal"`
	Raised         float64   `yaml:"raised" json:"raised"`
	Supporters     int       `yaml:"supporters" json:"supporters"`
	RecentPayments []Payment `yaml:"recentPayments" json:"recentPayments"`
}

type Product struct {
	ID          int     `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Price       float64 `yaml:"price" json:"price"`
	Description string  `yaml:"description" json:"description"`
	Image       string  `yaml:"image" json:"image"`
}

type Order struct {
	ID       int     `yaml:"id" json:"id"`
	Product  string  `yaml:"product" json:"product"`
	Amount   float64 `yaml:"amount" json:"amount"`
	Customer string  `yaml:"customer" json:"customer"`
	Date     string  `yaml:"date" json:"date"`
}

type Business struct {
	Profile      `yaml:",inline"`
	Revenue      float64   `yaml:"revenue" json:"revenue"`
	Transactions int       `yaml:"transactions" json:"transactions"`
	Products     []Product `yaml:"products" json:"products"`
	RecentOrders []Order   `yaml:"recentOrders" json:"recentOrders"`
}

type Milestone struct {
	Title     string  `yaml:"title" json:"title"`
	Amount    float64 `yaml:"amount" json:"amount"`
	Completed bool    `yaml:"completed" json:"completed"`
}

type Campaign struct {
	Title      string      `yaml:"title" json:"title"`
	Story      string      `yaml:"story" json:"story"`
	Milestones []Milestone `yaml:"milestones" json:"milestones"`
}

type Supporter struct {
	Name    string  `yaml:"name" json:"name"`
	Amount  float64 `yaml:"amount" json:"amount"`
	Message string  `yaml:"message" json:"message"`
	Date    string  `yaml:"date" json:"date"`
}

type Crowdfunder struct {
	Profile          `yaml:",inline"`
	Goal             float64     `yaml:"goal" json:"goal"`
	Raised           float64     `yaml:"raised" json:"raised"`
	Supporters       int         `yaml:"supporters" json:"supporters"`
	DaysLeft         int         `yaml:"daysLeft" json:"daysLeft"`
	Campaign         Campaign    `yaml:"campaign" json:"campaign"`
	RecentSupporters []Supporter `yaml:"recentSupporters" json:"recentSupporters"`
}

// Data holds every role's dashboard.
type Data struct {
	Creator     Creator     `yaml:"creator"`
	Business    Business    `yaml:"business"`
	Crowdfunder Crowdfunder `yaml:"crowdfunder"`
}

// Load parses the embedded fixture.
func Load() (*Data, error) {
	return Parse(fixtureYAML)
}

// Parse decodes dashboard YAML.
func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("dashboard: parse fixture: %w", err)
	}
	if data.Creator.Name == "" || data.Business.Name == "" || data.Crowdfunder.Name == "" {
		return nil, errors.New("dashboard: fixture is missing a role")
	}
	return &data, nil
}

// For returns the dashboard value for role.
func (d *Data) For(role domain.Role) any {
	switch role {
	case domain.RoleBusiness:
		return d.Business
	case domain.RoleCrowdfunder:
		return d.Crowdfunder
	default:
		return d.Creator
	}
}

// NextMilestone is the first milestone not yet completed.
func (c Crowdfunder) NextMilestone() (Milestone, bool) {
	for _, m := range c.Campaign.Milestones {
		if !m.Completed {
			return m, true
		}
	}
	return Milestone{}, false
}
