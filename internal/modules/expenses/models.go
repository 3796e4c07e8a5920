package expenses

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const Collection = "expenses"

type Expense struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_expenses_user_created" json:"user_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"index:idx_expenses_user_created" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (e Expense) OwnerID() uuid.UUID { return e.UserID }

type CreateExpenseRequest struct {
	Description string `json:"description" validate:"required,max=1000"`
	Amount      string `json:"amount" validate:"required"`
}

// ExpenseListResponse carries the visible expenses plus the caller's own
// total for the current month.
type ExpenseListResponse struct {
	Expenses     []Expense       `json:"expenses"`
	Total        int             `json:"total"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
}
