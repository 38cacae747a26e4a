package usecase

import (
	"context"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/google/uuid"
)

type Catalog struct {
	store Store
	now   Clock
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

func (uc *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	return uc.store.Repos().Products.List(ctx)
}

func (uc *Catalog) Get(ctx context.Context, id string) (*domain.Product, error) {
	return uc.store.Repos().Products.GetByID(ctx, id)
}

func (uc *Catalog) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := uc.now()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now

	err := uc.store.Tx(ctx, func(ctx context.Context, r Repos) error {
		if err := r.Products.Create(ctx, &p); err != nil {
			return err
		}
		ev := newEvent(TopicProductCreated, now)
		ev.ProductID = p.ID
		ev.ProductName = p.Name
		ev.Stock = p.Stock
		return appendEvent(ctx, r.Outbox, ev)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies a partial change; supplied fields obey the create rules.
func (uc *Catalog) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	var out *domain.Product
	err := uc.store.Tx(ctx, func(ctx context.Context, r Repos) error {
		p, err := r.Products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(p)
		p.Name = strings.TrimSpace(p.Name)
		if err := p.Validate(); err != nil {
			return err
		}
		p.UpdatedAt = uc.now()
		if err := r.Products.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete is unconditional: past orders keep their own product snapshots.
func (uc *Catalog) Delete(ctx context.Context, id string) error {
	return uc.store.Repos().Products.Delete(ctx, id)
}
