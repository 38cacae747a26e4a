package usecase

import (
	"context"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/google/uuid"
)

// Directory manages customers. Duplicates are rejected on create and update
// (same email, or same name ignoring case); deletes are unconditional.
type Directory struct {
	store Store
	now   Clock
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store, now: time.Now}
}

func (uc *Directory) List(ctx context.Context) ([]domain.Customer, error) {
	return uc.store.Repos().Customers.List(ctx)
}

func (uc *Directory) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return uc.store.Repos().Customers.GetByID(ctx, id)
}

func (uc *Directory) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	normalize(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	now := uc.now()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now

	err := uc.store.Tx(ctx, func(ctx context.Context, r Repos) error {
		dup, err := r.Customers.FindCollision(ctx, &c)
		if err != nil {
			return err
		}
		if dup != nil {
			return domain.ErrDuplicateCustomer
		}
		return r.Customers.Create(ctx, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (uc *Directory) Update(ctx context.Context, id string, patch domain.CustomerPatch) (*domain.Customer, error) {
	var out *domain.Customer
	err := uc.store.Tx(ctx, func(ctx context.Context, r Repos) error {
		c, err := r.Customers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(c)
		normalize(c)
		if err := c.Validate(); err != nil {
			return err
		}
		dup, err := r.Customers.FindCollision(ctx, c)
		if err != nil {
			return err
		}
		if dup != nil {
			return domain.ErrDuplicateCustomer
		}
		c.UpdatedAt = uc.now()
		if err := r.Customers.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *Directory) Delete(ctx context.Context, id string) error {
	return uc.store.Repos().Customers.Delete(ctx, id)
}

func normalize(c *domain.Customer) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
}
