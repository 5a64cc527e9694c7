package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

func TestLoadFixture(t *testing.T) {
	data, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Alex Chen", data.Creator.Name)
	assert.Equal(t, 3200.0, data.Creator.Raised)
	assert.Len(t, data.Creator.RecentPayments, 3)

	assert.Equal(t, 15420.0, data.Business.Revenue)
	assert.Equal(t, 89, data.Business.Transactions)
	assert.Len(t, data.Business.Products, 3)
	assert.Equal(t, "Smart Contract Audit", data.Business.RecentOrders[2].Product)

	assert.Equal(t, 15, data.Crowdfunder.DaysLeft)
	assert.Len(t, data.Crowdfunder.Campaign.Milestones, 4)
	assert.Contains(t, data.Crowdfunder.Campaign.Story, "reduce energy consumption by 90%")
}

func TestForRole(t *testing.T) {
	data, err := Load()
	require.NoError(t, err)

	_, ok := data.For(domain.RoleBusiness).(Business)
	assert.True(t, ok)
	_, ok = data.For(domain.RoleCrowdfunder).(Crowdfunder)
	assert.True(t, ok)
	_, ok = data.For("unknown").(Creator)
	assert.True(t, ok)
}

func TestNextMilestone(t *testing.T) {
	data, err := Load()
	require.NoError(t, err)

	next, ok := data.Crowdfunder.NextMilestone()
	require.True(t, ok)
	assert.Equal(t, "Testing & Optimization", next.Title)
}

func TestParseRejectsIncompleteFixture(t *testing.T) {
	_, err := Parse([]byte("creator:\n  name: Only\n"))
	assert.Error(t, err)
}
