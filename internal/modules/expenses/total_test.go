package expenses

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func expense(owner uuid.UUID, amount string, at time.Time) Expense {
	return Expense{ID: uuid.New(), UserID: owner, Amount: decimal.RequireFromString(amount), CreatedAt: at}
}

func TestMonthlyTotalOnlyCountsOwnRecords(t *testing.T) {
	self, other := uuid.New(), uuid.New()
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	records := []Expense{
		expense(self, "40", now),
		expense(other, "100", now),
	}

	got := MonthlyTotal(records, self, 2026, time.March, time.UTC)
	assert.True(t, got.Equal(decimal.NewFromInt(40)), got.String())
}

func TestMonthlyTotalWindow(t *testing.T) {
	self := uuid.New()
	loc := time.FixedZone("UTC+5", 5*60*60)

	records := []Expense{
		// 2026-03-01 00:00 local, first instant of the window.
		expense(self, "10.25", time.Date(2026, time.February, 28, 19, 0, 0, 0, time.UTC)),
		// One second before the window in local time.
		expense(self, "99", time.Date(2026, time.February, 28, 18, 59, 59, 0, time.UTC)),
		expense(self, "5.50", time.Date(2026, time.March, 31, 18, 59, 59, 0, time.UTC)),
		// 2026-04-01 00:00 local, first instant after the window.
		expense(self, "77", time.Date(2026, time.March, 31, 19, 0, 0, 0, time.UTC)),
	}

	got := MonthlyTotal(records, self, 2026, time.March, loc)
	assert.True(t, got.Equal(decimal.RequireFromString("15.75")), got.String())
}

func TestMonthlyTotalEmpty(t *testing.T) {
	assert.True(t, MonthlyTotal(nil, uuid.New(), 2026, time.January, time.UTC).IsZero())
}

func TestMonthBoundsDecember(t *testing.T) {
	start, end := MonthBounds(2025, time.December, time.UTC)
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}
