package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID    uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName  string          `json:"product_name" db:"product_name"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	Quantity     int             `json:"quantity" db:"quantity"`
}

type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Total       decimal.Decimal `json:"total" db:"total"`
	DateCreated time.Time       `json:"date_created" db:"date_created"`
	Items       []OrderItem     `json:"items" db:"-"`
}

// CartItem is one line of a client-submitted cart.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Cart is the transient input to order creation. TotalPrice is the client's
// claimed total: it is copied onto the order verbatim, never recomputed from
// item prices (trust boundary inherited from the original system).
type Cart struct {
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []CartItem      `json:"cart_items"`
}

// dateCreatedLayout is the fixed format used for listing orders.
const dateCreatedLayout = "2006-01-02 15:04:05"

// OrderSummary is the transient listing representation of an order.
type OrderSummary struct {
	ID          uuid.UUID       `json:"id"`
	Total       decimal.Decimal `json:"total"`
	DateCreated string          `json:"date_created"`
}

func summarize(o *Order) OrderSummary {
	return OrderSummary{
		ID:          o.ID,
		Total:       o.Total,
		DateCreated: o.DateCreated.Format(dateCreatedLayout),
	}
}
