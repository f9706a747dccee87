// Package repository holds the sql persistence layer. Every method runs its
// statements through the executor resolved from the context, so calls compose
// into whatever transaction the service layer opened.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/pkg/database"
)

// CategoryRepository handles category persistence.
type CategoryRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *database.DB, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{db: db, logger: logger}
}

// GetByID returns the category, or nil if it does not exist.
func (r *CategoryRepository) GetByID(ctx context.Context, id models.CategoryID) (*models.Category, error) {
	query := `SELECT id, limit_amount, ordering FROM categories WHERE id = ?`

	var c models.Category
	var limit string
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, string(id)).Scan(&c.ID, &limit, &c.Ordering)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get category", zap.String("id", string(id)), zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	c.Limit, err = decimal.NewFromString(limit)
	if err != nil {
		return nil, fmt.Errorf("invalid limit for category %s: %w", id, err)
	}
	return &c, nil
}

// List returns all categories ordered by their stable ordering key.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	query := `SELECT id, limit_amount, ordering FROM categories ORDER BY ordering ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		var limit string
		if err := rows.Scan(&c.ID, &limit, &c.Ordering); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Limit, err = decimal.NewFromString(limit)
		if err != nil {
			return nil, fmt.Errorf("invalid limit for category %s: %w", c.ID, err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateLimit sets the category's annual limit.
func (r *CategoryRepository) UpdateLimit(ctx context.Context, id models.CategoryID, limit decimal.Decimal) error {
	query := `UPDATE categories SET limit_amount = ? WHERE id = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, limit.String(), string(id))
	if err != nil {
		r.logger.Error("Failed to update category limit", zap.String("id", string(id)), zap.Error(err))
		return fmt.Errorf("failed to update category limit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// yearRange returns the UTC half-open interval [Jan 1 year, Jan 1 year+1).
func yearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
