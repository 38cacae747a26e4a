package usecase

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/shopspring/decimal"
)

const (
	SeedAdminEmail    = "admin@example.com"
	SeedAdminPassword = "admin123"
)

var sampleProducts = []domain.Product{
	{Name: "Laptop", Price: decimal.RequireFromString("999.99"), Category: "Electronics", Stock: 50},
	{Name: "Mouse", Price: decimal.RequireFromString("29.99"), Category: "Electronics", Stock: 200},
	{Name: "Keyboard", Price: decimal.RequireFromString("89.99"), Category: "Electronics", Stock: 150},
	{Name: "Notebook", Price: decimal.RequireFromString("12.99"), Category: "Stationery", Stock: 300},
	{Name: "Pen", Price: decimal.RequireFromString("2.99"), Category: "Stationery", Stock: 500},
}

var sampleCustomers = []domain.Customer{
	{Name: "John Doe", Email: "john@example.com", Phone: "123-456-7890"},
	{Name: "Jane Smith", Email: "jane@example.com", Phone: "987-654-3210"},
	{Name: "Bob Johnson", Email: "bob@example.com", Phone: "555-123-4567"},
}

type SeedReport struct {
	AdminCreated bool
	Products     int
	Customers    int
}

// Seed creates the admin user and, for empty collections, the sample catalog
// and directory. Running it twice changes nothing.
func Seed(ctx context.Context, store Store, auth *Auth, catalog *Catalog, dir *Directory) (SeedReport, error) {
	var rep SeedReport
	r := store.Repos()

	_, err := r.Users.GetByEmail(ctx, SeedAdminEmail)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if _, err := auth.Register(ctx, RegisterInput{Name: "Admin", Email: SeedAdminEmail, Password: SeedAdminPassword}); err != nil {
			return rep, fmt.Errorf("seed admin: %w", err)
		}
		rep.AdminCreated = true
	case err != nil:
		return rep, err
	}

	if n, err := r.Products.Count(ctx); err != nil {
		return rep, err
	} else if n == 0 {
		for _, p := range sampleProducts {
			if _, err := catalog.Create(ctx, p); err != nil {
				return rep, fmt.Errorf("seed product %s: %w", p.Name, err)
			}
			rep.Products++
		}
	}

	if n, err := r.Customers.Count(ctx); err != nil {
		return rep, err
	} else if n == 0 {
		for _, c := range sampleCustomers {
			if _, err := dir.Create(ctx, c); err != nil {
				return rep, fmt.Errorf("seed customer %s: %w", c.Name, err)
			}
			rep.Customers++
		}
	}
	return rep, nil
}
