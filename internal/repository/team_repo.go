package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/pkg/database"
)

// TeamRepository handles team persistence. Member ids are stored as a JSON
// array, matching the original data shape; team rosters are small enough
// that membership filtering happens in memory.
type TeamRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewTeamRepository creates a new team repository.
func NewTeamRepository(db *database.DB, logger *zap.Logger) *TeamRepository {
	return &TeamRepository{db: db, logger: logger}
}

// Create inserts a new team.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	members, err := json.Marshal(team.MemberIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal member ids: %w", err)
	}

	var rep sql.NullString
	if team.RepresentativeID != "" {
		rep = sql.NullString{String: team.RepresentativeID, Valid: true}
	}

	query := `INSERT INTO teams (id, name, representative_id, member_ids) VALUES (?, ?, ?, ?)`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, team.ID, team.Name, rep, string(members)); err != nil {
		r.logger.Error("Failed to create team", zap.Error(err))
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetByID returns the team, or nil if it does not exist.
func (r *TeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `SELECT id, name, representative_id, member_ids FROM teams WHERE id = ?`

	team, err := scanTeam(r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get team", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// List returns all teams.
func (r *TeamRepository) List(ctx context.Context) ([]models.Team, error) {
	query := `SELECT id, name, representative_id, member_ids FROM teams ORDER BY name ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list teams", zap.Error(err))
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		team, err := scanTeam(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *team)
	}
	return teams, rows.Err()
}

func scanTeam(scan func(dest ...interface{}) error) (*models.Team, error) {
	var team models.Team
	var rep sql.NullString
	var members string

	if err := scan(&team.ID, &team.Name, &rep, &members); err != nil {
		return nil, err
	}
	if rep.Valid {
		team.RepresentativeID = rep.String
	}
	if err := json.Unmarshal([]byte(members), &team.MemberIDs); err != nil {
		return nil, fmt.Errorf("invalid member ids for team %s: %w", team.ID, err)
	}
	return &team, nil
}
