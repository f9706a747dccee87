// Package timeoffs implements the leave quota ledger and the leave request
// lifecycle: global per-type annual allowances, quota admission control at
// creation time, representative resolution, and the team views that scope
// who may see and approve what.
package timeoffs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/auth"
	"github.com/perkwise/backoffice/internal/directory"
	"github.com/perkwise/backoffice/internal/domain/apperr"
	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/internal/repository"
	"github.com/perkwise/backoffice/pkg/database"
)

// Service is the time-off ledger service.
type Service struct {
	db        *database.DB
	teams     *repository.TeamRepository
	leaves    *repository.LeaveRequestRepository
	settings  *repository.SettingsRepository
	directory directory.Client
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the time-off service.
func NewService(
	db *database.DB,
	teams *repository.TeamRepository,
	leaves *repository.LeaveRequestRepository,
	settings *repository.SettingsRepository,
	dir directory.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		teams:     teams,
		leaves:    leaves,
		settings:  settings,
		directory: dir,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateLeaveRequestInput is the payload for CreateLeaveRequest.
type CreateLeaveRequestInput struct {
	UserID  string
	TeamID  string
	Type    models.LeaveType
	Start   time.Time
	End     time.Time
	Comment string
}

// CreateLeaveRequest admits a new time-off request against the requester's
// annual allowance. A request from the team's representative is approved on
// the spot with themselves as reviewer; everyone else starts Waiting. The
// quota check and the insert share one write transaction.
func (s *Service) CreateLeaveRequest(ctx context.Context, input CreateLeaveRequestInput) (*models.LeaveRequest, error) {
	if !input.Type.Valid() {
		return nil, apperr.Validation("unknown leave type %q", input.Type)
	}
	if input.Start.After(input.End) {
		return nil, apperr.Validation("start date must not be after end date")
	}

	req := &models.LeaveRequest{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		TeamID:    input.TeamID,
		Type:      input.Type,
		Status:    models.LeaveWaiting,
		StartDate: input.Start,
		EndDate:   input.End,
		Comment:   input.Comment,
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		team, err := s.teams.GetByID(ctx, input.TeamID)
		if err != nil {
			return err
		}
		if team == nil {
			return apperr.NotFound("team %s not found", input.TeamID)
		}
		if !team.HasMember(input.UserID) {
			return apperr.Forbidden("user %s is not a member of team %s", input.UserID, input.TeamID)
		}

		settings, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}

		max := settings.MaxForType(input.Type)
		used, err := s.leaves.CountApproved(ctx, input.UserID, input.Type, s.now().Year())
		if err != nil {
			return err
		}
		if used >= max {
			return &apperr.QuotaExceededError{Type: string(input.Type), Max: max, Used: used}
		}

		// Representatives are trusted approvers for their own team, their
		// own requests included.
		if team.RepresentativeID == input.UserID {
			req.Status = models.LeaveApproved
			req.ReviewedBy = input.UserID
		}

		return s.leaves.Create(ctx, req)
	})
	if err != nil {
		if database.IsBusy(err) {
			return nil, apperr.Conflict("concurrent update, please retry")
		}
		return nil, err
	}

	s.logger.Info("Leave request created",
		zap.String("request_id", req.ID),
		zap.String("type", string(req.Type)),
		zap.String("status", string(req.Status)))
	return req, nil
}

// ResolveLeaveRequest approves or declines a Waiting request. Only the
// team's representative may resolve, and a resolved request never changes
// again.
func (s *Service) ResolveLeaveRequest(ctx context.Context, requestID string, status models.LeaveStatus, reviewerID string) error {
	if status != models.LeaveApproved && status != models.LeaveDeclined {
		return apperr.Validation("resolution status must be Approved or Declined, got %q", status)
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		req, err := s.leaves.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("leave request %s not found", requestID)
		}

		team, err := s.teams.GetByID(ctx, req.TeamID)
		if err != nil {
			return err
		}
		if team == nil || team.RepresentativeID != reviewerID {
			return apperr.Forbidden("user %s is not the representative of team %s", reviewerID, req.TeamID)
		}

		if req.Status != models.LeaveWaiting {
			return apperr.Conflict("leave request %s is not waiting for approval", requestID)
		}

		return s.leaves.Resolve(ctx, requestID, status, reviewerID)
	})
	if err != nil {
		if database.IsBusy(err) {
			return apperr.Conflict("concurrent update, please retry")
		}
		return err
	}

	s.logger.Info("Leave request resolved",
		zap.String("request_id", requestID),
		zap.String("status", string(status)),
		zap.String("reviewed_by", reviewerID))
	return nil
}

// DayStats is the used/total pair for one leave type.
type DayStats struct {
	Total int `json:"total"`
	Used  int `json:"used"`
}

// UserStats is a user's current-year leave consumption in one team.
type UserStats struct {
	SickDays    DayStats `json:"sickDays"`
	TimeoffDays DayStats `json:"timeoffDays"`
}

// GetUserStats returns the user's approved day counts against the allowance.
func (s *Service) GetUserStats(ctx context.Context, userID, teamID string) (*UserStats, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	year := s.now().Year()
	sick, err := s.leaves.CountApprovedForTeam(ctx, userID, teamID, models.LeaveSickLeave, year)
	if err != nil {
		return nil, err
	}
	timeoff, err := s.leaves.CountApprovedForTeam(ctx, userID, teamID, models.LeaveTimeOff, year)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		SickDays:    DayStats{Total: settings.MaxSickDays, Used: sick},
		TimeoffDays: DayStats{Total: settings.MaxVacationDays, Used: timeoff},
	}, nil
}

// GetSettings returns the global quota settings.
func (s *Service) GetSettings(ctx context.Context) (models.QuotaSettings, error) {
	return s.settings.Get(ctx)
}

// UpdateSettings sets the global annual allowances. Admin only; both values
// must be at least one day.
func (s *Service) UpdateSettings(ctx context.Context, identity auth.Identity, settings models.QuotaSettings) error {
	if !auth.CanAdministrate(identity.Role) {
		return apperr.Forbidden("only Admin can change quota settings")
	}
	if settings.MaxVacationDays < 1 {
		return apperr.Validation("maxVacationDays must be at least 1, got %d", settings.MaxVacationDays)
	}
	if settings.MaxSickDays < 1 {
		return apperr.Validation("maxSickDays must be at least 1, got %d", settings.MaxSickDays)
	}
	return s.settings.Update(ctx, settings)
}
