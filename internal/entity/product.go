package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Category  string
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Msg: "name is required"}
	}
	if p.Price.IsNegative() {
		return &ValidationError{Field: "price", Msg: "price must not be negative"}
	}
	// prices are stored as DECIMAL(12,2)
	if !p.Price.Equal(p.Price.Round(2)) {
		return &ValidationError{Field: "price", Msg: "price must have at most 2 decimal places"}
	}
	if p.Stock < 0 {
		return &ValidationError{Field: "stock", Msg: "stock must not be negative"}
	}
	return nil
}

// ProductPatch carries the fields of a partial update; nil means unchanged.
type ProductPatch struct {
	Name     *string
	Price    *decimal.Decimal
	Category *string
	Stock    *int
}

func (pp ProductPatch) Apply(p *Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
}
