package domain

import (
	"strings"
	"time"
)

type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Msg: "customer name is required"}
	}
	return nil
}

// CollidesWith applies the directory dedupe rule: same non-empty email, or
// same name ignoring case.
func (c *Customer) CollidesWith(other *Customer) bool {
	if c.ID != "" && c.ID == other.ID {
		return false
	}
	if c.Email != "" && strings.EqualFold(c.Email, other.Email) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(other.Name))
}

type CustomerPatch struct {
	Name  *string
	Email *string
	Phone *string
}

func (cp CustomerPatch) Apply(c *Customer) {
	if cp.Name != nil {
		c.Name = *cp.Name
	}
	if cp.Email != nil {
		c.Email = *cp.Email
	}
	if cp.Phone != nil {
		c.Phone = *cp.Phone
	}
}
