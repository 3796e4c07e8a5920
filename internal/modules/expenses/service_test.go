package expenses

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu    sync.Mutex
	items []Expense
	now   func() time.Time
}

func (r *memoryRepo) Create(_ context.Context, e *Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.CreatedAt = r.now()
	r.items = append(r.items, *e)
	return nil
}

func (r *memoryRepo) List(_ context.Context, policy access.Policy) ([]Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return access.Filter(policy, append([]Expense(nil), r.items...)), nil
}

func (r *memoryRepo) OwnedBetween(_ context.Context, userID uuid.UUID, from, to time.Time) ([]Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Expense
	for _, e := range r.items {
		if e.UserID == userID && !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestCreateValidatesAmount(t *testing.T) {
	now := func() time.Time { return time.Now() }
	svc := NewService(&memoryRepo{now: now}, modules.Emitter{}, time.UTC)

	for _, amount := range []string{"0", "-3", "ten"} {
		_, err := svc.Create(context.Background(), uuid.New(), CreateExpenseRequest{Description: "x", Amount: amount})
		assert.ErrorIs(t, err, ErrInvalidAmount, amount)
	}
}

func TestListReturnsCallerMonthlyTotal(t *testing.T) {
	fixed := time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC)
	repo := &memoryRepo{now: func() time.Time { return fixed }}
	svc := NewService(repo, modules.Emitter{}, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()
	self, other := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, self, CreateExpenseRequest{Description: "fuel", Amount: "40"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, other, CreateExpenseRequest{Description: "tools", Amount: "100"})
	require.NoError(t, err)

	t.Run("restricted role", func(t *testing.T) {
		resp, err := svc.List(ctx, access.RoleUser, self)
		require.NoError(t, err)
		assert.Len(t, resp.Expenses, 1)
		assert.True(t, resp.MonthlyTotal.Equal(decimal.NewFromInt(40)))
	})

	t.Run("elevated role still totals own spending", func(t *testing.T) {
		resp, err := svc.List(ctx, access.RoleAdmin, self)
		require.NoError(t, err)
		assert.Len(t, resp.Expenses, 2)
		assert.True(t, resp.MonthlyTotal.Equal(decimal.NewFromInt(40)))
	})
}
