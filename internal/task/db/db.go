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

func (d *DB) CreateTask(task models.Task) error {
	_, err := d.Bun.NewInsert().Model(&task).Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (d *DB) GetTaskByID(id string) (*models.Task, error) {
	task := new(models.Task)
	err := d.Bun.NewSelect().Model(task).
		Where("id = ?", id).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.KindNotFound, "Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return task, nil
}

func (d *DB) ListTasksAssignedTo(userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := d.Bun.NewSelect().Model(&tasks).
		Where("assigned_to = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (d *DB) ListTasksAssignedBy(userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := d.Bun.NewSelect().Model(&tasks).
		Where("assigned_by = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (d *DB) SetCompleted(id string, completed bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Task)(nil)).
		Set("is_completed = ?", completed).
		Where("id = ?", id).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to update task completion: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return errs.New(errs.KindNotFound, "Task not found")
	}
	return nil
}

func (d *DB) SetVerified(id string, verified bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Task)(nil)).
		Set("is_verified = ?", verified).
		Where("id = ?", id).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to update task verification: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return errs.New(errs.KindNotFound, "Task not found")
	}
	return nil
}

func (d *DB) GetUserByID(id string) (*models.User, error) {
	user := new(models.User)
	err := d.Bun.NewSelect().Model(user).
		Where("id = ?", id).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.KindNotFound, "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}
