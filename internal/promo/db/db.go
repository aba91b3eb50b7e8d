package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/errs"
	"eventhub/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func NewDB(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

func (d *DB) CreatePromo(promo models.PromoCode) error {
	_, err := d.Bun.NewInsert().Model(&promo).Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	return nil
}

func (d *DB) GetPromoByID(id string) (*models.PromoCode, error) {
	promo := new(models.PromoCode)
	err := d.Bun.NewSelect().Model(promo).
		Where("id = ?", id).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrPromoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch promo code: %w", err)
	}
	return promo, nil
}

// GetActivePromo looks up an active code within a company. Codes are
// stored case-sensitively but matched case-insensitively.
func (d *DB) GetActivePromo(code, companyID string) (*models.PromoCode, error) {
	promo := new(models.PromoCode)
	err := d.Bun.NewSelect().Model(promo).
		Where("LOWER(code) = LOWER(?) AND company_id = ? AND is_active = ?", code, companyID, true).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrPromoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch promo code: %w", err)
	}
	return promo, nil
}

func (d *DB) PromoCodeExists(code, companyID string) (bool, error) {
	exists, err := d.Bun.NewSelect().
		Model((*models.PromoCode)(nil)).
		Where("LOWER(code) = LOWER(?) AND company_id = ?", code, companyID).
		Exists(context.Background())
	if err != nil {
		return false, fmt.Errorf("failed to check promo code: %w", err)
	}
	return exists, nil
}

func (d *DB) ListPromos(companyID string) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	err := d.Bun.NewSelect().Model(&promos).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	return promos, nil
}

func (d *DB) ListActivePromos(companyID string) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	err := d.Bun.NewSelect().Model(&promos).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to list active promo codes: %w", err)
	}
	return promos, nil
}

func (d *DB) UpdatePromo(promo models.PromoCode) error {
	_, err := d.Bun.NewUpdate().Model(&promo).
		WherePK().
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to update promo code: %w", err)
	}
	return nil
}

func (d *DB) SetPromoActive(id string, active bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.PromoCode)(nil)).
		Set("is_active = ?", active).
		Where("id = ?", id).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to update promo status: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return errs.ErrPromoNotFound
	}
	return nil
}

func (d *DB) DeletePromo(id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.PromoCode)(nil)).
		Where("id = ?", id).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete promo code: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return errs.ErrPromoNotFound
	}
	return nil
}

// DeactivateExpired flips every active code whose expiry has passed and
// returns how many were flipped. Codes with no expiry never match.
func (d *DB) DeactivateExpired(now time.Time) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.PromoCode)(nil)).
		Set("is_active = ?", false).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, now).
		Exec(context.Background())
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired promo codes: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

func (d *DB) HasUsed(userID, promoID string) (bool, error) {
	exists, err := d.Bun.NewSelect().
		Model((*models.PromoCodeUsage)(nil)).
		Where("user_id = ? AND promo_code_id = ?", userID, promoID).
		Exists(context.Background())
	if err != nil {
		return false, fmt.Errorf("failed to check promo usage: %w", err)
	}
	return exists, nil
}

func (d *DB) RecordUsage(usage models.PromoCodeUsage) error {
	_, err := d.Bun.NewInsert().Model(&usage).Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to record promo usage: %w", err)
	}
	return nil
}
