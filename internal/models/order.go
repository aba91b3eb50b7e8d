package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderCompleted OrderStatus = "Completed"
	OrderFailed    OrderStatus = "Failed"
	OrderRefunded  OrderStatus = "Refunded"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            string      `bun:"id,pk" json:"id"`
	EventID       string      `bun:"event_id,notnull" json:"event_id"`
	UserID        string      `bun:"user_id,notnull" json:"user_id"`
	CompanyID     string      `bun:"company_id,notnull" json:"company_id"`
	TotalAmount   float64     `bun:"total_amount,notnull" json:"total_amount"`
	PaymentStatus OrderStatus `bun:"payment_status,notnull" json:"payment_status"`
	CreatedAt     time.Time   `bun:"created_at,nullzero" json:"created_at"`
}

// OrderLine is a snapshot of tier data at purchase time. TicketID is a weak
// reference back to the tier for inventory bookkeeping only; price and name
// are copies so later tier edits never alter historical orders.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID         string  `bun:"id,pk" json:"id"`
	OrderID    string  `bun:"order_id,notnull" json:"order_id"`
	TicketID   string  `bun:"ticket_id,notnull" json:"ticket_id"`
	TicketName string  `bun:"ticket_name,notnull" json:"ticket_name"`
	Quantity   int     `bun:"quantity,notnull" json:"quantity"`
	Amount     float64 `bun:"amount,notnull" json:"amount"`
}

type OrderLineRequest struct {
	TicketID   string  `json:"ticket_id"`
	TicketName string  `json:"ticket_name"`
	Quantity   int     `json:"quantity"`
	Amount     float64 `json:"amount"`
}

type CreateOrderRequest struct {
	EventID string             `json:"event_id"`
	Tickets []OrderLineRequest `json:"tickets"`
}

type UpdateOrderRequest struct {
	Tickets       []OrderLineRequest `json:"tickets"`
	PaymentStatus OrderStatus        `json:"payment_status,omitempty"`
}

type OrderWithLines struct {
	Order Order       `json:"order"`
	Lines []OrderLine `json:"tickets"`
}

type CreateOrderResponse struct {
	Order            Order        `json:"order"`
	Lines            []OrderLine  `json:"tickets"`
	RemainingTickets []TicketTier `json:"remaining_tickets"`
}

type OrderListPage struct {
	Orders      []OrderWithLines `json:"orders"`
	CurrentPage int              `json:"current_page"`
	TotalPages  int              `json:"total_pages"`
	TotalOrders int              `json:"total_orders"`
}
