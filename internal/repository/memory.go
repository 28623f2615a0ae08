package repository

import (
	"context"
	"fmt"
	"sync"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
)

// MemoryRepo is the in-process store selected by STORAGE_DRIVER=memory.
// It follows the DeliveryRepo contract and never shares pointers with callers.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Delivery
	byOrder map[int64]string
}

// NewMemoryRepo returns an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]*domain.Delivery),
		byOrder: make(map[int64]string),
	}
}

// Create stores a new delivery and sets Version to 1.
func (r *MemoryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOrder[d.OrderID]; ok {
		return fmt.Errorf("%w: delivery for order %d already exists", apperr.ErrConflict, d.OrderID)
	}
	if _, ok := r.byID[d.ID]; ok {
		return fmt.Errorf("%w: delivery %s already exists", apperr.ErrConflict, d.ID)
	}

	d.Version = 1
	r.byID[d.ID] = stored(d)
	r.byOrder[d.OrderID] = d.ID
	return nil
}

// Get returns a copy of the stored delivery.
func (r *MemoryRepo) Get(ctx context.Context, id string) (*domain.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return d.Clone(), nil
}

// GetByOrderID returns a copy of the delivery of an order.
func (r *MemoryRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

// Save replaces the stored delivery if d.Version is current and bumps Version.
func (r *MemoryRepo) Save(ctx context.Context, d *domain.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[d.ID]
	if !ok {
		return fmt.Errorf("delivery %s: %w", d.ID, apperr.ErrNotFound)
	}
	if cur.Version != d.Version {
		return fmt.Errorf("%w: delivery %s is at version %d, not %d", apperr.ErrConflict, d.ID, cur.Version, d.Version)
	}

	d.Version++
	r.byID[d.ID] = stored(d)
	return nil
}

// stored copies d without the ephemeral location, matching what DeliveryRepo keeps.
func stored(d *domain.Delivery) *domain.Delivery {
	cp := d.Clone()
	cp.LastKnownLocation = nil
	cp.LocationAt = nil
	return cp
}
