package models

import (
	"time"

	"github.com/uptrace/bun"
)

type DiscountType string

const (
	DiscountFlat    DiscountType = "flat"
	DiscountPercent DiscountType = "percent"
)

// PromoCode codes are unique per company only, enforced at creation time.
type PromoCode struct {
	bun.BaseModel `bun:"table:promo_codes"`

	ID             string       `bun:"id,pk" json:"id"`
	Code           string       `bun:"code,notnull" json:"code"`
	DiscountAmount float64      `bun:"discount_amount,notnull" json:"discount_amount"`
	DiscountType   DiscountType `bun:"discount_type,notnull" json:"discount_type"`
	Description    string       `bun:"description" json:"description"`
	CreatedBy      string       `bun:"created_by" json:"created_by"`
	CompanyID      string       `bun:"company_id" json:"company_id"`
	ExpiresAt      time.Time    `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	IsActive       bool         `bun:"is_active" json:"is_active"`
	CreatedAt      time.Time    `bun:"created_at,nullzero" json:"created_at"`
}

// PromoCodeUsage records one redemption per (user, promo) pair.
type PromoCodeUsage struct {
	bun.BaseModel `bun:"table:promo_code_usages"`

	ID          string    `bun:"id,pk" json:"id"`
	UserID      string    `bun:"user_id,notnull" json:"user_id"`
	PromoCodeID string    `bun:"promo_code_id,notnull" json:"promo_code_id"`
	UsedAt      time.Time `bun:"used_at,nullzero" json:"used_at"`
}

type ApplyPromoRequest struct {
	Code           string  `json:"code"`
	OriginalAmount float64 `json:"original_amount"`
	OrderID        string  `json:"order_id"`
}

type ApplyPromoResult struct {
	DiscountAmount float64      `json:"discount_amount"`
	DiscountType   DiscountType `json:"discount_type"`
	FinalAmount    float64      `json:"final_amount"`
	Description    string       `json:"description,omitempty"`
}

type PromoPreviewRequest struct {
	OrderID   string `json:"order_id"`
	PromoCode string `json:"promo_code,omitempty"`
}

type PromoPreviewResult struct {
	TotalAmount float64 `json:"total_amount"`
	Discount    float64 `json:"discount"`
	FinalAmount float64 `json:"final_amount"`
}

type CreatePromoRequest struct {
	Code           string       `json:"code"`
	DiscountAmount float64      `json:"discount_amount"`
	DiscountType   DiscountType `json:"discount_type"`
	Description    string       `json:"description"`
	ExpiresAt      string       `json:"expires_at,omitempty"`
	IsActive       *bool        `json:"is_active,omitempty"`
}

type UpdatePromoRequest struct {
	Code           *string       `json:"code,omitempty"`
	DiscountAmount *float64      `json:"discount_amount,omitempty"`
	DiscountType   *DiscountType `json:"discount_type,omitempty"`
	Description    *string       `json:"description,omitempty"`
	ExpiresAt      *string       `json:"expires_at,omitempty"`
	IsActive       *bool         `json:"is_active,omitempty"`
}
