package expenses

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthBounds returns [first of month, first of next month) in loc.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// MonthlyTotal sums the amounts of userID's expenses created in the given
// calendar month. Records of other users are ignored whatever the caller's
// role.
func MonthlyTotal(records []Expense, userID uuid.UUID, year int, month time.Month, loc *time.Location) decimal.Decimal {
	start, end := MonthBounds(year, month, loc)
	total := decimal.Zero
	for _, r := range records {
		if r.UserID != userID {
			continue
		}
		if r.CreatedAt.Before(start) || !r.CreatedAt.Before(end) {
			continue
		}
		total = total.Add(r.Amount)
	}
	return total
}
