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

func (d *DB) idb(idb bun.IDB) bun.IDB {
	if idb == nil {
		return d.Bun
	}
	return idb
}

func (d *DB) InsertPayment(payment *models.Payment) error {
	_, err := d.Bun.NewInsert().Model(payment).Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (d *DB) GetPaymentByID(paymentID string) (*models.Payment, error) {
	payment := new(models.Payment)
	err := d.Bun.NewSelect().Model(payment).
		Where("id = ?", paymentID).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return payment, nil
}

func (d *DB) GetPaymentByGatewayOrder(idb bun.IDB, gatewayOrderID string) (*models.Payment, error) {
	payment := new(models.Payment)
	err := d.idb(idb).NewSelect().Model(payment).
		Where("gateway_order_id = ?", gatewayOrderID).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return payment, nil
}

// MarkPaid records the capture. Runs inside the verify transaction so
// the payment and its order flip together.
func (d *DB) MarkPaid(idb bun.IDB, paymentID, gatewayPaymentID, methodDetails string) error {
	_, err := d.idb(idb).NewUpdate().
		Model((*models.Payment)(nil)).
		Set("status = ?", models.PaymentPaid).
		Set("gateway_payment_id = ?", gatewayPaymentID).
		Set("method_details = ?", methodDetails).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", paymentID).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	return nil
}

func (d *DB) MarkFailed(idb bun.IDB, paymentID string) error {
	_, err := d.idb(idb).NewUpdate().
		Model((*models.Payment)(nil)).
		Set("status = ?", models.PaymentFailed).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", paymentID).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

// ListUserPayments pages a user's payments, newest first. The second
// return value is the total before paging.
func (d *DB) ListUserPayments(userID string, page, pageSize int) ([]models.Payment, int, error) {
	var payments []models.Payment
	total, err := d.Bun.NewSelect().Model(&payments).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(context.Background())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}

func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, fn)
}
