package timeoffs

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/auth"
	"github.com/perkwise/backoffice/internal/directory"
	"github.com/perkwise/backoffice/internal/domain/apperr"
	"github.com/perkwise/backoffice/internal/models"
)

// CreateTeamInput is the payload for CreateTeam.
type CreateTeamInput struct {
	Name      string
	MemberIDs []string
}

// CreateTeam registers a team with the creator as its representative. The
// creator is always a member; duplicate member ids are collapsed.
func (s *Service) CreateTeam(ctx context.Context, identity auth.Identity, input CreateTeamInput) (*models.Team, error) {
	if !auth.CanManageTeams(identity.Role) {
		return nil, apperr.Forbidden("role %s cannot create teams", identity.Role)
	}
	if input.Name == "" {
		return nil, apperr.Validation("team name is required")
	}

	team := &models.Team{
		ID:               uuid.NewString(),
		Name:             input.Name,
		RepresentativeID: identity.UserID,
		MemberIDs:        uniqueMembers(identity.UserID, input.MemberIDs),
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, err
	}

	s.logger.Info("Team created",
		zap.String("team_id", team.ID),
		zap.String("name", team.Name),
		zap.Int("members", len(team.MemberIDs)))
	return team, nil
}

// TeamMember is a member enriched with directory data.
type TeamMember struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TeamView is a team with its roster and leave request history.
type TeamView struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	RepresentativeID string                `json:"representativeId"`
	Members          []TeamMember          `json:"members"`
	LeaveRequests    []models.LeaveRequest `json:"leaveRequests"`
}

// GetTeam returns a team's roster and request history. Only members and the
// representative may look. Directory lookups degrade per member: a member
// the directory does not know keeps an empty email.
func (s *Service) GetTeam(ctx context.Context, viewerID, teamID string) (*TeamView, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, apperr.NotFound("team %s not found", teamID)
	}
	if !team.HasMember(viewerID) {
		return nil, apperr.Forbidden("user %s is not a member of team %s", viewerID, teamID)
	}

	requests, err := s.leaves.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	view := &TeamView{
		ID:               team.ID,
		Name:             team.Name,
		RepresentativeID: team.RepresentativeID,
		Members:          make([]TeamMember, 0, len(team.MemberIDs)),
		LeaveRequests:    requests,
	}

	emails := map[string]string{}
	if members, err := s.directory.FindMany(ctx, team.MemberIDs); err != nil {
		s.logger.Warn("Directory lookup failed, returning bare member ids",
			zap.String("team_id", teamID), zap.Error(err))
	} else {
		emails = directory.EmailIndex(members)
	}
	for _, id := range team.MemberIDs {
		view.Members = append(view.Members, TeamMember{ID: id, Email: emails[id]})
	}
	return view, nil
}

// LeaveRequestView is a leave request joined with the requester's
// directory email.
type LeaveRequestView struct {
	models.LeaveRequest
	RequesterEmail string `json:"requesterEmail"`
}

// unknownEmail marks requests whose requester the directory could not resolve.
const unknownEmail = "unknown"

// GetTeamLeaveRequests returns a team's leave request history, newest start
// date first, each joined with the requester's email. Members and the
// representative only. Directory failures degrade the emails to "unknown"
// instead of aborting.
func (s *Service) GetTeamLeaveRequests(ctx context.Context, viewerID, teamID string) ([]LeaveRequestView, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, apperr.NotFound("team %s not found", teamID)
	}
	if !team.HasMember(viewerID) {
		return nil, apperr.Forbidden("user %s is not a member of team %s", viewerID, teamID)
	}

	requests, err := s.leaves.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	emails := s.resolveRequesterEmails(ctx, teamID, requests)
	views := make([]LeaveRequestView, 0, len(requests))
	for _, request := range requests {
		email, ok := emails[request.UserID]
		if !ok {
			email = unknownEmail
		}
		views = append(views, LeaveRequestView{LeaveRequest: request, RequesterEmail: email})
	}
	return views, nil
}

func (s *Service) resolveRequesterEmails(ctx context.Context, teamID string, requests []models.LeaveRequest) map[string]string {
	seen := make(map[string]bool)
	var ids []string
	for _, request := range requests {
		if !seen[request.UserID] {
			seen[request.UserID] = true
			ids = append(ids, request.UserID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	members, err := s.directory.FindMany(ctx, ids)
	if err != nil {
		s.logger.Warn("Directory lookup failed, requester emails degraded",
			zap.String("team_id", teamID), zap.Error(err))
		return nil
	}
	return directory.EmailIndex(members)
}

// GetMyTeams lists the teams the user belongs to.
func (s *Service) GetMyTeams(ctx context.Context, userID string) ([]models.Team, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if t.HasMember(userID) {
			mine = append(mine, t)
		}
	}
	return mine, nil
}

func uniqueMembers(creatorID string, ids []string) []string {
	seen := map[string]bool{creatorID: true}
	members := []string{creatorID}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	return members
}
