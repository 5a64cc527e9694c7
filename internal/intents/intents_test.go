package intents

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/drafts"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T) (*Service, *clock) {
	t.Helper()
	kv := drafts.NewMemoryKV()
	store, err := drafts.NewStore(kv)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.MarkPublished(ctx, "owner", "greenfund", domain.PageDraft{Role: domain.RoleCrowdfunder, Name: "Green", Handle: "greenfund"}))
	require.NoError(t, store.Save(ctx, "owner", "", domain.PageDraft{Role: domain.RoleCreator, Handle: "unpublished"}))

	c := &clock{now: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(kv, store, WithClock(c.Now))
	require.NoError(t, err)
	return svc, c
}

func TestCreateRequiresOwnedPublishedPage(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	req := CreateRequest{Amount: 10, ExpiryValue: 1, ExpiryType: UnitDays}

	_, err := svc.Create(ctx, "intruder", "greenfund", req)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = svc.Create(ctx, "owner", "unpublished", req)
	assert.ErrorIs(t, err, ErrPageNotFound)
	_, err = svc.Create(ctx, "", "greenfund", req)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestCreateValidatesRequest(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	cases := []struct {
		req  CreateRequest
		want error
	}{
		{CreateRequest{Amount: 0, ExpiryValue: 1}, ErrInvalidAmount},
		{CreateRequest{Amount: math.NaN(), ExpiryValue: 1}, ErrInvalidAmount},
		{CreateRequest{Amount: math.Inf(1), ExpiryValue: 1}, ErrInvalidAmount},
		{CreateRequest{Amount: 5, ExpiryValue: 0}, ErrInvalidExpiry},
		{CreateRequest{Amount: 5, ExpiryValue: 1, MaxUsages: -1}, ErrInvalidUsages},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, "owner", "greenfund", tc.req)
		assert.ErrorIs(t, err, tc.want, "%+v", tc.req)
	}
}

func TestLifetimeUnits(t *testing.T) {
	assert.Equal(t, 3*time.Hour, CreateRequest{ExpiryValue: 3, ExpiryType: "hours"}.Lifetime())
	assert.Equal(t, 48*time.Hour, CreateRequest{ExpiryValue: 2, ExpiryType: "days"}.Lifetime())
	assert.Equal(t, 14*24*time.Hour, CreateRequest{ExpiryValue: 2, ExpiryType: "Weeks"}.Lifetime())
	assert.Equal(t, 24*time.Hour, CreateRequest{ExpiryValue: 1}.Lifetime())
}

func TestRedeemLifecycle(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	intent, err := svc.Create(ctx, "owner", "greenfund", CreateRequest{Amount: 25, Description: "Workshop seat", ExpiryValue: 2, ExpiryType: UnitHours, MaxUsages: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, intent.StatusAt(c.Now()))
	assert.Equal(t, "https://onclick.test/greenfund?amount=25&intent="+intent.ID, intent.Link("https://onclick.test/"))

	_, err = svc.Redeem(ctx, intent.ID, 10)
	assert.ErrorIs(t, err, ErrAmountMismatch)

	got, err := svc.Redeem(ctx, intent.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
	_, err = svc.Redeem(ctx, intent.ID, 25)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, intent.ID, 25)
	var unusable *UnusableError
	require.True(t, errors.As(err, &unusable), "got %v", err)
	assert.Equal(t, StatusMaxUsageReached, unusable.Status)

	stored, err := svc.Get(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UsageCount)

	_, err = svc.Redeem(ctx, "missing", 25)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemExpiredAndCancelled(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	expiring, err := svc.Create(ctx, "owner", "greenfund", CreateRequest{Amount: 5, ExpiryValue: 1, ExpiryType: UnitHours})
	require.NoError(t, err)
	cancelled, err := svc.Create(ctx, "owner", "greenfund", CreateRequest{Amount: 5, ExpiryValue: 1, ExpiryType: UnitWeeks})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, "intruder", cancelled.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
	out, err := svc.Cancel(ctx, "owner", cancelled.ID)
	require.NoError(t, err)
	assert.False(t, out.Active)

	c.Advance(2 * time.Hour)
	var unusable *UnusableError
	_, err = svc.Redeem(ctx, expiring.ID, 5)
	require.True(t, errors.As(err, &unusable))
	assert.Equal(t, StatusExpired, unusable.Status)
	_, err = svc.Redeem(ctx, cancelled.ID, 5)
	require.True(t, errors.As(err, &unusable))
	assert.Equal(t, StatusCancelled, unusable.Status)
}

func TestConcurrentRedeemHonoursMaxUsages(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	intent, err := svc.Create(ctx, "owner", "greenfund", CreateRequest{Amount: 1, ExpiryValue: 1, MaxUsages: 3})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Redeem(ctx, intent.ID, 1); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, wins)
}

func TestListByHandleAndSummarise(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	list, err := svc.ListByHandle(ctx, "greenfund")
	require.NoError(t, err)
	assert.Empty(t, list)

	a, err := svc.Create(ctx, "owner", "greenfund", CreateRequest{Amount: 10, ExpiryValue: 1})
	require.NoError(t, err)
	b, err := svc.Create(ctx, "owner", "greenfund", CreateRequest{Amount: 30, ExpiryValue: 1})
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, a.ID, 10)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, b.ID, 30)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, "owner", b.ID)
	require.NoError(t, err)

	list, err = svc.ListByHandle(ctx, "GreenFund")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	stats := Summarise(list, c.Now())
	assert.Equal(t, Stats{TotalCreated: 2, TotalActive: 1, TotalPayments: 2, TotalRevenue: 40, AverageAmount: 20}, stats)
}
