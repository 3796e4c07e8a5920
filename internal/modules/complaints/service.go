package complaints

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/google/uuid"
)

var (
	ErrComplaintNotFound = errors.New("complaint not found")
	ErrInvalidTransition = errors.New("complaint cannot move to that status")
	ErrStatusConflict    = errors.New("complaint status changed concurrently")
)

type Service struct {
	repo Repository
	emit modules.Emitter
}

func NewService(repo Repository, emit modules.Emitter) *Service {
	return &Service{repo: repo, emit: emit}
}

// Create files a complaint in the pending state.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req CreateComplaintRequest) (*Complaint, error) {
	c := &Complaint{
		ID:          uuid.New(),
		UserID:      ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      StatusPending,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.emit.Emit(ctx, live.Change{Collection: Collection, RecordID: c.ID, OwnerID: c.UserID},
		events.ComplaintCreated, ownerID, c)
	return c, nil
}

func (s *Service) List(ctx context.Context, role access.Role, userID uuid.UUID) ([]Complaint, error) {
	return s.repo.List(ctx, access.PolicyFor(role, userID))
}

// UpdateStatus moves a complaint along its workflow. Callers gate this to
// elevated roles.
func (s *Service) UpdateStatus(ctx context.Context, actorID, id uuid.UUID, to string) (*Complaint, error) {
	c, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(transitions[c.Status], to) {
		return nil, ErrInvalidTransition
	}
	if err := s.repo.SetStatus(ctx, id, c.Status, to); err != nil {
		return nil, err
	}
	c.Status = to

	s.emit.Emit(ctx, live.Change{Collection: Collection, RecordID: c.ID, OwnerID: c.UserID},
		events.ComplaintStatusChanged, actorID, c)
	return c, nil
}

func (s *Service) Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader) {
	return modules.OwnerFilter(role, userID), func(ctx context.Context) (any, error) {
		items, err := s.List(ctx, role, userID)
		if err != nil {
			return nil, err
		}
		return ComplaintListResponse{Complaints: items, Total: len(items)}, nil
	}
}
