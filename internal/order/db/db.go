package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (d *DB) InsertOrder(idb bun.IDB, order *models.Order) error {
	_, err := d.idb(idb).NewInsert().Model(order).Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (d *DB) InsertLines(idb bun.IDB, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := d.idb(idb).NewInsert().Model(&lines).Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to insert order lines: %w", err)
	}
	return nil
}

func (d *DB) GetOrderByID(idb bun.IDB, orderID string) (*models.Order, error) {
	order := new(models.Order)
	err := d.idb(idb).NewSelect().Model(order).
		Where("id = ?", orderID).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	return order, nil
}

func (d *DB) GetLinesByOrder(idb bun.IDB, orderID string) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := d.idb(idb).NewSelect().Model(&lines).
		Where("order_id = ?", orderID).
		Order("ticket_name ASC").
		Scan(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order lines: %w", err)
	}
	return lines, nil
}

func (d *DB) UpdateOrderTotal(idb bun.IDB, orderID string, total float64) error {
	_, err := d.idb(idb).NewUpdate().
		Model((*models.Order)(nil)).
		Set("total_amount = ?", total).
		Where("id = ?", orderID).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}
	return nil
}

func (d *DB) UpdateOrderStatus(idb bun.IDB, orderID string, status models.OrderStatus) error {
	_, err := d.idb(idb).NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_status = ?", status).
		Where("id = ?", orderID).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

// FailIfPending flips a pending order to Failed and reports whether the
// row changed. An order settled in the meantime is left untouched.
func (d *DB) FailIfPending(idb bun.IDB, orderID string) (bool, error) {
	res, err := d.idb(idb).NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_status = ?", models.OrderFailed).
		Where("id = ? AND payment_status = ?", orderID, models.OrderPending).
		Exec(context.Background())
	if err != nil {
		return false, fmt.Errorf("failed to fail pending order: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}

// ReplaceLines drops an order's line snapshot and writes a fresh one.
func (d *DB) ReplaceLines(idb bun.IDB, orderID string, lines []models.OrderLine) error {
	db := d.idb(idb)
	_, err := db.NewDelete().
		Model((*models.OrderLine)(nil)).
		Where("order_id = ?", orderID).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to clear order lines: %w", err)
	}
	return d.InsertLines(db, lines)
}

func (d *DB) DeleteOrder(idb bun.IDB, orderID string) error {
	db := d.idb(idb)
	_, err := db.NewDelete().
		Model((*models.OrderLine)(nil)).
		Where("order_id = ?", orderID).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete order lines: %w", err)
	}
	res, err := db.NewDelete().
		Model((*models.Order)(nil)).
		Where("id = ?", orderID).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return errs.ErrOrderNotFound
	}
	return nil
}

func (d *DB) ListUserOrders(userID string, status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().Model(&orders).
		Where("user_id = ? AND payment_status = ?", userID, status).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	return orders, nil
}

// ListAll pages through every order in a company, newest first. The second
// return value is the total order count before paging.
func (d *DB) ListAll(companyID string, page, pageSize int) ([]models.Order, int, error) {
	var orders []models.Order
	total, err := d.Bun.NewSelect().Model(&orders).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(context.Background())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, fn)
}
