package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/pkg/database"
)

// settingsRowID is the primary key of the single quota settings row.
const settingsRowID = "primary"

// SettingsRepository handles the global quota settings row.
type SettingsRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *database.DB, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

// Get returns the quota settings. The row is seeded by migration, so a
// missing row is an infrastructure error, not a domain condition.
func (r *SettingsRepository) Get(ctx context.Context) (models.QuotaSettings, error) {
	query := `SELECT max_vacation_days, max_sick_days FROM quota_settings WHERE id = ?`

	var s models.QuotaSettings
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, settingsRowID).Scan(&s.MaxVacationDays, &s.MaxSickDays)
	if err == sql.ErrNoRows {
		return s, fmt.Errorf("quota settings row missing; database not seeded")
	}
	if err != nil {
		r.logger.Error("Failed to get quota settings", zap.Error(err))
		return s, fmt.Errorf("failed to get quota settings: %w", err)
	}
	return s, nil
}

// Update sets the annual allowances.
func (r *SettingsRepository) Update(ctx context.Context, s models.QuotaSettings) error {
	query := `UPDATE quota_settings SET max_vacation_days = ?, max_sick_days = ? WHERE id = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, s.MaxVacationDays, s.MaxSickDays, settingsRowID)
	if err != nil {
		r.logger.Error("Failed to update quota settings", zap.Error(err))
		return fmt.Errorf("failed to update quota settings: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("quota settings row missing; database not seeded")
	}
	return nil
}
