package pinning

import (
	"context"
	"strings"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

// SocialLinks are optional profile links keyed by network.
type SocialLinks map[string]string

type PageMetadata struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	BannerURL    string         `json:"bannerUrl"`
	AvatarURL    string         `json:"avatarUrl"`
	Theme        string         `json:"theme"`
	SocialLinks  SocialLinks    `json:"socialLinks,omitempty"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}

type ProductMetadata struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	ImageURL         string         `json:"imageUrl"`
	AdditionalImages []string       `json:"additionalImages,omitempty"`
	Category         string         `json:"category,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	Specifications   map[string]any `json:"specifications,omitempty"`
}

type CampaignMilestone struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type CampaignUpdate struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type CampaignMetadata struct {
	Title      string              `json:"title"`
	Story      string              `json:"story"`
	BannerURL  string              `json:"bannerUrl,omitempty"`
	VideoURL   string              `json:"videoUrl,omitempty"`
	Milestones []CampaignMilestone `json:"milestones,omitempty"`
	Updates    []CampaignUpdate    `json:"updates,omitempty"`
}

// TransactionMessage is the note a supporter attaches to a payment.
type TransactionMessage struct {
	Message       string `json:"message"`
	SupporterName string `json:"supporterName,omitempty"`
	IsPublic      bool   `json:"isPublic"`
}

type Achievement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type ProfileExtended struct {
	Bio          string        `json:"bio,omitempty"`
	Location     string        `json:"location,omitempty"`
	Skills       []string      `json:"skills,omitempty"`
	Portfolio    []string      `json:"portfolio,omitempty"`
	Achievements []Achievement `json:"achievements,omitempty"`
}

// NewPageMetadata converts a draft into its public metadata document.
func NewPageMetadata(d domain.PageDraft) PageMetadata {
	fields := map[string]any{
		"role":   string(d.Role),
		"layout": string(d.Layout),
	}
	if d.Handle != "" {
		fields["handle"] = d.Handle
	}
	if d.BusinessType != "" {
		fields["businessType"] = d.BusinessType
	}
	if d.Goal != nil {
		fields["goal"] = *d.Goal
	}
	if d.Deadline != "" {
		fields["deadline"] = d.Deadline
	}
	if d.WalletAddress != "" {
		fields["walletAddress"] = d.WalletAddress
	}
	return PageMetadata{
		Name:         d.Name,
		Description:  d.Description,
		BannerURL:    d.Banner,
		AvatarURL:    d.Avatar,
		Theme:        d.Theme,
		CustomFields: fields,
	}
}

// NewCampaignMetadata builds the campaign document of a crowdfunder draft.
func NewCampaignMetadata(d domain.PageDraft, milestones []CampaignMilestone) CampaignMetadata {
	return CampaignMetadata{
		Title:      d.Name,
		Story:      d.Description,
		BannerURL:  d.Banner,
		Milestones: milestones,
	}
}

// PinPage pins the page metadata document for a draft.
func PinPage(ctx context.Context, p Pinner, d domain.PageDraft) (string, error) {
	name := "page"
	if d.Handle != "" {
		name = "page-" + d.Handle
	}
	return p.PinJSON(ctx, name, NewPageMetadata(d))
}

// PinTransactionMessage pins msg and returns "" without calling p when the message is blank.
func PinTransactionMessage(ctx context.Context, p Pinner, msg TransactionMessage) (string, error) {
	msg.Message = strings.TrimSpace(msg.Message)
	if msg.Message == "" {
		return "", nil
	}
	msg.SupporterName = strings.TrimSpace(msg.SupporterName)
	return p.PinJSON(ctx, "transaction-message", msg)
}
