package http

import (
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/shopspring/decimal"
)

// money renders a stored amount rounded to cents.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

type productResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Category  string    `json:"category"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toProductResp(p *domain.Product) productResp {
	return productResp{
		ID:        p.ID,
		Name:      p.Name,
		Price:     money(p.Price),
		Category:  p.Category,
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type customerResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCustomerResp(c *domain.Customer) customerResp {
	return customerResp{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type lineItemResp struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type orderResp struct {
	ID            string         `json:"id"`
	OrderNumber   int64          `json:"orderNumber"`
	CustomerID    string         `json:"customerId,omitempty"`
	CustomerName  string         `json:"customerName"`
	CustomerEmail string         `json:"customerEmail,omitempty"`
	CustomerPhone string         `json:"customerPhone,omitempty"`
	Items         []lineItemResp `json:"items"`
	Total         float64        `json:"total"`
	Status        string         `json:"status"`
	CreatedBy     string         `json:"createdBy,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func toOrderResp(o *domain.Order) orderResp {
	items := make([]lineItemResp, len(o.Items))
	for i, li := range o.Items {
		items[i] = lineItemResp{
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			Quantity:    li.Quantity,
			Price:       money(li.Price),
		}
	}
	return orderResp{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		Items:         items,
		Total:         money(o.Total),
		Status:        string(o.Status),
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toOrderResps(orders []domain.Order) []orderResp {
	out := make([]orderResp, len(orders))
	for i := range orders {
		out[i] = toOrderResp(&orders[i])
	}
	return out
}

type statsResp struct {
	TotalOrders    int64   `json:"totalOrders"`
	TotalProducts  int64   `json:"totalProducts"`
	TotalCustomers int64   `json:"totalCustomers"`
	TotalRevenue   float64 `json:"totalRevenue"`
}

func toStatsResp(v usecase.StatsView) statsResp {
	return statsResp{
		TotalOrders:    v.TotalOrders,
		TotalProducts:  v.TotalProducts,
		TotalCustomers: v.TotalCustomers,
		TotalRevenue:   money(v.TotalRevenue),
	}
}

type notificationResp struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
}

type userResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResp(u *domain.User) userResp {
	return userResp{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), CreatedAt: u.CreatedAt}
}
