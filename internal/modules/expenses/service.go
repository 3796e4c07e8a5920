package expenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be a positive number")

type Service struct {
	repo Repository
	emit modules.Emitter
	loc  *time.Location
	now  func() time.Time
}

// NewService builds the expense service. loc is the calendar monthly
// totals are computed in.
func NewService(repo Repository, emit modules.Emitter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, emit: emit, loc: loc, now: time.Now}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req CreateExpenseRequest) (*Expense, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	e := &Expense{
		ID:          uuid.New(),
		UserID:      ownerID,
		Description: strings.TrimSpace(req.Description),
		Amount:      amount.Round(2),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.emit.Emit(ctx, live.Change{Collection: Collection, RecordID: e.ID, OwnerID: e.UserID},
		events.ExpenseCreated, ownerID, e)
	return e, nil
}

// List returns the caller's visible expenses and their own total for the
// current month.
func (s *Service) List(ctx context.Context, role access.Role, userID uuid.UUID) (*ExpenseListResponse, error) {
	items, err := s.repo.List(ctx, access.PolicyFor(role, userID))
	if err != nil {
		return nil, err
	}
	total, err := s.CurrentMonthTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ExpenseListResponse{Expenses: items, Total: len(items), MonthlyTotal: total}, nil
}

// CurrentMonthTotal is userID's spending in the current calendar month.
func (s *Service) CurrentMonthTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	now := s.now().In(s.loc)
	from, to := MonthBounds(now.Year(), now.Month(), s.loc)
	records, err := s.repo.OwnedBetween(ctx, userID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return MonthlyTotal(records, userID, now.Year(), now.Month(), s.loc), nil
}

func (s *Service) Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader) {
	return modules.OwnerFilter(role, userID), func(ctx context.Context) (any, error) {
		return s.List(ctx, role, userID)
	}
}
