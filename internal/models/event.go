package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string     `bun:"id,pk" json:"id"`
	Name        string     `bun:"name,notnull,unique" json:"name"`
	Description string     `bun:"description" json:"description"`
	Visibility  Visibility `bun:"visibility,notnull" json:"visibility"`
	Capacity    int        `bun:"capacity" json:"capacity"`
	DateTime    time.Time  `bun:"date_time,nullzero" json:"date_time"`
	Location    string     `bun:"location" json:"location"`
	CreatedBy   string     `bun:"created_by,notnull" json:"created_by"`
	CompanyID   string     `bun:"company_id" json:"company_id"`
	CreatedAt   time.Time  `bun:"created_at,nullzero" json:"created_at"`
}

// TicketTier is one priced ticket category of an event. Remaining is the
// live counter decremented by purchases and restored by cancellations.
type TicketTier struct {
	bun.BaseModel `bun:"table:ticket_tiers"`

	ID          string  `bun:"id,pk" json:"id"`
	EventID     string  `bun:"event_id,notnull" json:"event_id"`
	Name        string  `bun:"name,notnull" json:"name"`
	Description string  `bun:"description" json:"description"`
	Price       float64 `bun:"price,notnull" json:"price"`
	Remaining   int     `bun:"remaining,notnull" json:"remaining"`
}

type CreateEventRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
}

type EventDetailsRequest struct {
	EventID  string `json:"event_id"`
	Capacity int    `json:"capacity"`
	DateTime string `json:"date_time"`
	Location string `json:"location"`
}

type AddTiersRequest struct {
	EventID string      `json:"event_id"`
	Tiers   []TierInput `json:"tickets"`
}

type TierInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

type BuyTicketRequest struct {
	EventID    string `json:"event_id"`
	TicketName string `json:"ticket_name"`
	Quantity   int    `json:"quantity"`
}

type EventWithTiers struct {
	Event Event        `json:"event"`
	Tiers []TicketTier `json:"tickets"`
}
