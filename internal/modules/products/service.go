package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidPrice     = errors.New("price must be a non-negative number")
	ErrAssigneeNotFound = errors.New("assignee not found")
	ErrAssigneeRole     = errors.New("products can only be assigned to users and technicians")
	ErrImageUpload      = errors.New("image upload failed")
)

// Image is an uploaded file attached to a new product.
type Image struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Ext         string
}

type Service struct {
	repo  Repository
	blobs storage.Store
	users roles.ProfileStore
	emit  modules.Emitter
	now   func() time.Time
}

func NewService(repo Repository, blobs storage.Store, users roles.ProfileStore, emit modules.Emitter) *Service {
	return &Service{repo: repo, blobs: blobs, users: users, emit: emit, now: time.Now}
}

// Create uploads the image first, then writes the document. If the write
// fails the uploaded image is removed again.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req CreateProductRequest, img *Image) (*Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	kind := req.Kind
	if kind == "" {
		kind = KindProduct
	}

	p := &Product{
		ID:           uuid.New(),
		UserID:       ownerID,
		Name:         strings.TrimSpace(req.Name),
		Price:        price.Round(2),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		Kind:         kind,
	}

	if img != nil {
		key := storage.ProductImageKey(ownerID, s.now(), img.Ext)
		obj, err := s.blobs.Put(ctx, key, img.Body, img.Size, img.ContentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImageUpload, err)
		}
		p.ImageKey = obj.Key
		p.ImageURL = obj.URL
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if p.ImageKey != "" {
			if derr := s.blobs.Delete(ctx, p.ImageKey); derr != nil {
				slog.Error("orphaned product image", "key", p.ImageKey, "user_id", ownerID.String(), "error", derr)
			}
		}
		return nil, err
	}

	s.emit.Emit(ctx, live.Change{Collection: Collection, RecordID: p.ID, OwnerID: p.UserID},
		events.ProductCreated, ownerID, p)
	return p, nil
}

func (s *Service) List(ctx context.Context, role access.Role, userID uuid.UUID) ([]Product, error) {
	return s.repo.List(ctx, access.PolicyFor(role, userID))
}

func (s *Service) Unassigned(ctx context.Context) ([]Product, error) {
	return s.repo.Unassigned(ctx)
}

func (s *Service) Count(ctx context.Context, role access.Role, userID uuid.UUID) (int64, error) {
	return s.repo.Count(ctx, access.PolicyFor(role, userID))
}

// Assign hands a product to a user or technician. Callers gate this to
// elevated roles.
func (s *Service) Assign(ctx context.Context, actorID, productID, assignee uuid.UUID) (*Product, error) {
	stored, err := s.users.RoleOf(ctx, assignee)
	if errors.Is(err, roles.ErrProfileNotFound) {
		return nil, ErrAssigneeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read assignee role: %w", err)
	}
	if role, _ := access.ParseRole(stored); !role.Assignable() {
		return nil, ErrAssigneeRole
	}

	if err := s.repo.Assign(ctx, productID, assignee, s.now().UTC()); err != nil {
		return nil, err
	}
	p, err := s.repo.ByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.emit.Emit(ctx, live.Change{Collection: Collection, RecordID: p.ID, OwnerID: p.UserID},
		events.ProductAssigned, actorID, p)
	return p, nil
}

// Watch streams the caller's visible products.
func (s *Service) Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader) {
	return modules.OwnerFilter(role, userID), func(ctx context.Context) (any, error) {
		items, err := s.List(ctx, role, userID)
		if err != nil {
			return nil, err
		}
		return ProductListResponse{Products: items, Total: len(items)}, nil
	}
}
