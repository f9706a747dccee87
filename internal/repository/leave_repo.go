package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/pkg/database"
)

// LeaveRequestRepository handles leave request persistence.
type LeaveRequestRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewLeaveRequestRepository creates a new leave request repository.
func NewLeaveRequestRepository(db *database.DB, logger *zap.Logger) *LeaveRequestRepository {
	return &LeaveRequestRepository{db: db, logger: logger}
}

const leaveColumns = `id, user_id, team_id, type, status, start_date, end_date, comment, reviewed_by`

// Create inserts a new leave request.
func (r *LeaveRequestRepository) Create(ctx context.Context, req *models.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests (id, user_id, team_id, type, status, start_date, end_date, comment, reviewed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var reviewedBy sql.NullString
	if req.ReviewedBy != "" {
		reviewedBy = sql.NullString{String: req.ReviewedBy, Valid: true}
	}

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.TeamID,
		string(req.Type),
		string(req.Status),
		req.StartDate,
		req.EndDate,
		req.Comment,
		reviewedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create leave request", zap.Error(err))
		return fmt.Errorf("failed to create leave request: %w", err)
	}
	return nil
}

// GetByID returns the leave request, or nil if it does not exist.
func (r *LeaveRequestRepository) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = ?`

	req, err := scanLeaveRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get leave request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	return req, nil
}

// CountApproved returns the number of a user's Approved requests of the given
// type whose start date falls in the quota year.
func (r *LeaveRequestRepository) CountApproved(ctx context.Context, userID string, leaveType models.LeaveType, year int) (int, error) {
	start, end := yearRange(year)
	query := `
		SELECT COUNT(*) FROM leave_requests
		WHERE user_id = ? AND type = ? AND status = ? AND start_date >= ? AND start_date < ?
	`

	var count int
	err := r.db.Executor(ctx).QueryRowContext(ctx, query,
		userID, string(leaveType), string(models.LeaveApproved), start, end,
	).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count approved leave", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count approved leave: %w", err)
	}
	return count, nil
}

// CountApprovedForTeam is CountApproved narrowed to one team, for the
// per-team stats view.
func (r *LeaveRequestRepository) CountApprovedForTeam(ctx context.Context, userID, teamID string, leaveType models.LeaveType, year int) (int, error) {
	start, end := yearRange(year)
	query := `
		SELECT COUNT(*) FROM leave_requests
		WHERE user_id = ? AND team_id = ? AND type = ? AND status = ? AND start_date >= ? AND start_date < ?
	`

	var count int
	err := r.db.Executor(ctx).QueryRowContext(ctx, query,
		userID, teamID, string(leaveType), string(models.LeaveApproved), start, end,
	).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count approved leave for team", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count approved leave for team: %w", err)
	}
	return count, nil
}

// ListByTeam returns all of a team's leave requests, newest start date first.
func (r *LeaveRequestRepository) ListByTeam(ctx context.Context, teamID string) ([]models.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE team_id = ? ORDER BY start_date DESC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, teamID)
	if err != nil {
		r.logger.Error("Failed to list leave requests", zap.String("team_id", teamID), zap.Error(err))
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}
	defer rows.Close()

	var requests []models.LeaveRequest
	for rows.Next() {
		req, err := scanLeaveRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// Resolve sets the final status and stamps the reviewing representative.
func (r *LeaveRequestRepository) Resolve(ctx context.Context, id string, status models.LeaveStatus, reviewedBy string) error {
	query := `UPDATE leave_requests SET status = ?, reviewed_by = ? WHERE id = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, string(status), reviewedBy, id)
	if err != nil {
		r.logger.Error("Failed to resolve leave request", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to resolve leave request: %w", err)
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

func scanLeaveRequest(scan func(dest ...interface{}) error) (*models.LeaveRequest, error) {
	var req models.LeaveRequest
	var reviewedBy sql.NullString

	err := scan(
		&req.ID,
		&req.UserID,
		&req.TeamID,
		&req.Type,
		&req.Status,
		&req.StartDate,
		&req.EndDate,
		&req.Comment,
		&reviewedBy,
	)
	if err != nil {
		return nil, err
	}
	if reviewedBy.Valid {
		req.ReviewedBy = reviewedBy.String
	}
	return &req, nil
}
