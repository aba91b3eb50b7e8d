package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentCreated PaymentStatus = "created"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodCard       PaymentMethod = "card"
	MethodUPI        PaymentMethod = "upi"
	MethodQR         PaymentMethod = "qr"
	MethodNetbanking PaymentMethod = "netbanking"
	MethodWallet     PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodUPI, MethodQR, MethodNetbanking, MethodWallet:
		return true
	}
	return false
}

// Payment is the local record of one gateway-side order. MethodDetails is
// the raw JSON blob returned by the gateway after a successful capture.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID               string        `bun:"id,pk" json:"id"`
	OrderID          string        `bun:"order_id,notnull" json:"order_id"`
	GatewayOrderID   string        `bun:"gateway_order_id,notnull,unique" json:"gateway_order_id"`
	GatewayPaymentID string        `bun:"gateway_payment_id,nullzero" json:"gateway_payment_id,omitempty"`
	UserID           string        `bun:"user_id,notnull" json:"user_id"`
	Amount           float64       `bun:"amount,notnull" json:"amount"`
	Currency         string        `bun:"currency,notnull" json:"currency"`
	Status           PaymentStatus `bun:"status,notnull" json:"status"`
	Method           PaymentMethod `bun:"method,notnull" json:"method"`
	MethodDetails    string        `bun:"method_details" json:"method_details,omitempty"`
	CreatedAt        time.Time     `bun:"created_at,nullzero" json:"created_at"`
	UpdatedAt        time.Time     `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// GatewayOrder is the processor-side order opened for a purchase, amount in
// minor units.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// GatewayPaymentDetails is what the processor reports for a captured
// payment.
type GatewayPaymentDetails struct {
	Method      string `json:"method"`
	Bank        string `json:"bank,omitempty"`
	Wallet      string `json:"wallet,omitempty"`
	VPA         string `json:"vpa,omitempty"`
	CardNetwork string `json:"card_network,omitempty"`
	CardType    string `json:"card_type,omitempty"`
}

type CreatePaymentOrderRequest struct {
	Amount   float64       `json:"amount"`
	Currency string        `json:"currency"`
	OrderID  string        `json:"order_id"`
	Method   PaymentMethod `json:"payment_method"`
}

type CreatePaymentOrderResponse struct {
	GatewayOrder GatewayOrder `json:"gateway_order"`
	Payment      Payment      `json:"payment"`
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

type VerifyPaymentResponse struct {
	Payment Payment `json:"payment"`
	Order   Order   `json:"order"`
}
