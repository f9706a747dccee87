package timeoffs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/auth"
	"github.com/perkwise/backoffice/internal/directory"
	"github.com/perkwise/backoffice/internal/domain/apperr"
	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/internal/repository"
	"github.com/perkwise/backoffice/pkg/database"
)

type stubDirectory struct {
	members []directory.Member
	err     error
}

func (s *stubDirectory) FindMany(ctx context.Context, ids []string) ([]directory.Member, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.members, nil
}

func newTestService(t *testing.T) (*Service, *database.DB) {
	t.Helper()
	log := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, log).Run("../../migrations"))

	svc := NewService(
		db,
		repository.NewTeamRepository(db, log),
		repository.NewLeaveRequestRepository(db, log),
		repository.NewSettingsRepository(db, log),
		&stubDirectory{},
		log,
	)
	return svc, db
}

func insertTeam(t *testing.T, db *database.DB, team models.Team) string {
	t.Helper()
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	repo := repository.NewTeamRepository(db, zap.NewNop())
	require.NoError(t, repo.Create(context.Background(), &team))
	return team.ID
}

func insertLeave(t *testing.T, db *database.DB, req models.LeaveRequest) string {
	t.Helper()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.StartDate.IsZero() {
		req.StartDate = time.Now().UTC()
	}
	if req.EndDate.IsZero() {
		req.EndDate = req.StartDate
	}
	repo := repository.NewLeaveRequestRepository(db, zap.NewNop())
	require.NoError(t, repo.Create(context.Background(), &req))
	return req.ID
}

func day(month, dayOfMonth int) time.Time {
	return time.Date(time.Now().UTC().Year(), time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func TestCreateLeaveRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("member request starts waiting", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})

		req, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID:  "user-1",
			TeamID:  teamID,
			Type:    models.LeaveTimeOff,
			Start:   day(7, 1),
			End:     day(7, 5),
			Comment: "summer",
		})
		require.NoError(t, err)
		assert.Equal(t, models.LeaveWaiting, req.Status)
		assert.Empty(t, req.ReviewedBy)
	})

	t.Run("representative request is approved immediately", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1"},
		})

		req, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "rep-1",
			TeamID: teamID,
			Type:   models.LeaveSickLeave,
			Start:  day(3, 1),
			End:    day(3, 2),
		})
		require.NoError(t, err)
		assert.Equal(t, models.LeaveApproved, req.Status)
		assert.Equal(t, "rep-1", req.ReviewedBy)
	})

	t.Run("rejects request past the quota", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})

		// The seeded sick allowance is 10 days; fill it.
		for i := 0; i < 10; i++ {
			insertLeave(t, db, models.LeaveRequest{
				UserID:    "user-1",
				TeamID:    teamID,
				Type:      models.LeaveSickLeave,
				Status:    models.LeaveApproved,
				StartDate: day(1, i+1),
			})
		}

		_, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "user-1",
			TeamID: teamID,
			Type:   models.LeaveSickLeave,
			Start:  day(6, 1),
			End:    day(6, 1),
		})
		require.Error(t, err)

		var quota *apperr.QuotaExceededError
		require.ErrorAs(t, err, &quota)
		assert.Equal(t, 10, quota.Max)
		assert.Equal(t, 10, quota.Used)
		assert.Equal(t, 0, quota.Remaining())
	})

	t.Run("waiting and declined requests do not consume quota", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})

		for i := 0; i < 10; i++ {
			status := models.LeaveWaiting
			if i%2 == 0 {
				status = models.LeaveDeclined
			}
			insertLeave(t, db, models.LeaveRequest{
				UserID:    "user-1",
				TeamID:    teamID,
				Type:      models.LeaveSickLeave,
				Status:    status,
				StartDate: day(1, i+1),
			})
		}

		_, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "user-1",
			TeamID: teamID,
			Type:   models.LeaveSickLeave,
			Start:  day(6, 1),
			End:    day(6, 1),
		})
		require.NoError(t, err)
	})

	t.Run("only the start year counts against the quota", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})

		lastYear := time.Date(time.Now().UTC().Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 10; i++ {
			insertLeave(t, db, models.LeaveRequest{
				UserID:    "user-1",
				TeamID:    teamID,
				Type:      models.LeaveSickLeave,
				Status:    models.LeaveApproved,
				StartDate: lastYear.AddDate(0, 0, i),
			})
		}

		_, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "user-1",
			TeamID: teamID,
			Type:   models.LeaveSickLeave,
			Start:  day(6, 1),
			End:    day(6, 1),
		})
		require.NoError(t, err)
	})

	t.Run("rejects non-members", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1"},
		})

		_, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "outsider",
			TeamID: teamID,
			Type:   models.LeaveTimeOff,
			Start:  day(6, 1),
			End:    day(6, 1),
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("rejects unknown team", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "user-1",
			TeamID: "missing",
			Type:   models.LeaveTimeOff,
			Start:  day(6, 1),
			End:    day(6, 1),
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("rejects inverted date range", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1"},
		})

		_, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "rep-1",
			TeamID: teamID,
			Type:   models.LeaveTimeOff,
			Start:  day(6, 10),
			End:    day(6, 1),
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("rejects unknown leave type", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "user-1",
			TeamID: "any",
			Type:   "Sabbatical",
			Start:  day(6, 1),
			End:    day(6, 1),
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestResolveLeaveRequest(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Service, *database.DB, string, string) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})
		requestID := insertLeave(t, db, models.LeaveRequest{
			UserID:    "user-1",
			TeamID:    teamID,
			Type:      models.LeaveTimeOff,
			Status:    models.LeaveWaiting,
			StartDate: day(6, 1),
		})
		return svc, db, teamID, requestID
	}

	t.Run("representative approves", func(t *testing.T) {
		svc, db, _, requestID := setup(t)
		require.NoError(t, svc.ResolveLeaveRequest(ctx, requestID, models.LeaveApproved, "rep-1"))

		repo := repository.NewLeaveRequestRepository(db, zap.NewNop())
		req, err := repo.GetByID(ctx, requestID)
		require.NoError(t, err)
		assert.Equal(t, models.LeaveApproved, req.Status)
		assert.Equal(t, "rep-1", req.ReviewedBy)
	})

	t.Run("representative declines", func(t *testing.T) {
		svc, db, _, requestID := setup(t)
		require.NoError(t, svc.ResolveLeaveRequest(ctx, requestID, models.LeaveDeclined, "rep-1"))

		repo := repository.NewLeaveRequestRepository(db, zap.NewNop())
		req, err := repo.GetByID(ctx, requestID)
		require.NoError(t, err)
		assert.Equal(t, models.LeaveDeclined, req.Status)
	})

	t.Run("only the representative may resolve", func(t *testing.T) {
		svc, _, _, requestID := setup(t)
		err := svc.ResolveLeaveRequest(ctx, requestID, models.LeaveApproved, "user-1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("a resolved request never changes again", func(t *testing.T) {
		svc, _, _, requestID := setup(t)
		require.NoError(t, svc.ResolveLeaveRequest(ctx, requestID, models.LeaveDeclined, "rep-1"))

		err := svc.ResolveLeaveRequest(ctx, requestID, models.LeaveApproved, "rep-1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})

	t.Run("waits cannot be resolved back to waiting", func(t *testing.T) {
		svc, _, _, requestID := setup(t)
		err := svc.ResolveLeaveRequest(ctx, requestID, models.LeaveWaiting, "rep-1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("missing request", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.ResolveLeaveRequest(ctx, "missing", models.LeaveApproved, "rep-1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestGetUserStats(t *testing.T) {
	ctx := context.Background()

	svc, db := newTestService(t)
	teamID := insertTeam(t, db, models.Team{
		Name:             "platform",
		RepresentativeID: "rep-1",
		MemberIDs:        []string{"rep-1", "user-1"},
	})

	for i := 0; i < 3; i++ {
		insertLeave(t, db, models.LeaveRequest{
			UserID:    "user-1",
			TeamID:    teamID,
			Type:      models.LeaveTimeOff,
			Status:    models.LeaveApproved,
			StartDate: day(2, i+1),
		})
	}
	insertLeave(t, db, models.LeaveRequest{
		UserID:    "user-1",
		TeamID:    teamID,
		Type:      models.LeaveSickLeave,
		Status:    models.LeaveApproved,
		StartDate: day(4, 1),
	})
	// Waiting requests and other users stay out of the stats.
	insertLeave(t, db, models.LeaveRequest{
		UserID:    "user-1",
		TeamID:    teamID,
		Type:      models.LeaveTimeOff,
		Status:    models.LeaveWaiting,
		StartDate: day(8, 1),
	})
	insertLeave(t, db, models.LeaveRequest{
		UserID:    "rep-1",
		TeamID:    teamID,
		Type:      models.LeaveTimeOff,
		Status:    models.LeaveApproved,
		StartDate: day(8, 2),
	})

	stats, err := svc.GetUserStats(ctx, "user-1", teamID)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.TimeoffDays.Total)
	assert.Equal(t, 3, stats.TimeoffDays.Used)
	assert.Equal(t, 10, stats.SickDays.Total)
	assert.Equal(t, 1, stats.SickDays.Used)
}

func TestQuotaSettings(t *testing.T) {
	ctx := context.Background()
	admin := auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}

	t.Run("seeded defaults", func(t *testing.T) {
		svc, _ := newTestService(t)
		settings, err := svc.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 20, settings.MaxVacationDays)
		assert.Equal(t, 10, settings.MaxSickDays)
	})

	t.Run("admin updates allowances", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.UpdateSettings(ctx, admin, models.QuotaSettings{MaxVacationDays: 25, MaxSickDays: 12})
		require.NoError(t, err)

		settings, err := svc.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 25, settings.MaxVacationDays)
		assert.Equal(t, 12, settings.MaxSickDays)
	})

	t.Run("lowering an allowance leaves approved requests alone", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})
		var approved []string
		for i := 0; i < 5; i++ {
			approved = append(approved, insertLeave(t, db, models.LeaveRequest{
				UserID:    "user-1",
				TeamID:    teamID,
				Type:      models.LeaveSickLeave,
				Status:    models.LeaveApproved,
				StartDate: day(1, i+1),
			}))
		}

		require.NoError(t, svc.UpdateSettings(ctx, admin, models.QuotaSettings{MaxVacationDays: 20, MaxSickDays: 3}))

		// Unlike a category limit decrease, the existing ledger is untouched.
		repo := repository.NewLeaveRequestRepository(db, zap.NewNop())
		for _, id := range approved {
			req, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.LeaveApproved, req.Status)
		}

		// Only the next admission sees the lowered allowance.
		_, err := svc.CreateLeaveRequest(ctx, CreateLeaveRequestInput{
			UserID: "user-1",
			TeamID: teamID,
			Type:   models.LeaveSickLeave,
			Start:  day(6, 1),
			End:    day(6, 1),
		})
		require.Error(t, err)

		var quota *apperr.QuotaExceededError
		require.ErrorAs(t, err, &quota)
		assert.Equal(t, 3, quota.Max)
		assert.Equal(t, 5, quota.Used)
		assert.Equal(t, 0, quota.Remaining())
	})

	t.Run("requires admin", func(t *testing.T) {
		svc, _ := newTestService(t)
		manager := auth.Identity{UserID: "mgr-1", Role: auth.RoleManager}
		err := svc.UpdateSettings(ctx, manager, models.QuotaSettings{MaxVacationDays: 25, MaxSickDays: 12})
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("rejects allowances below one day", func(t *testing.T) {
		svc, _ := newTestService(t)
		for _, settings := range []models.QuotaSettings{
			{MaxVacationDays: 0, MaxSickDays: 10},
			{MaxVacationDays: 20, MaxSickDays: 0},
		} {
			err := svc.UpdateSettings(ctx, admin, settings)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		}
	})
}

func TestTeams(t *testing.T) {
	ctx := context.Background()
	manager := auth.Identity{UserID: "mgr-1", Role: auth.RoleManager}

	t.Run("creator becomes representative and member", func(t *testing.T) {
		svc, _ := newTestService(t)
		team, err := svc.CreateTeam(ctx, manager, CreateTeamInput{
			Name:      "platform",
			MemberIDs: []string{"user-1", "user-2", "user-1", "mgr-1", ""},
		})
		require.NoError(t, err)
		assert.Equal(t, "mgr-1", team.RepresentativeID)
		assert.Equal(t, []string{"mgr-1", "user-1", "user-2"}, team.MemberIDs)
	})

	t.Run("requires admin or manager", func(t *testing.T) {
		svc, _ := newTestService(t)
		user := auth.Identity{UserID: "user-1", Role: auth.RoleUser}
		_, err := svc.CreateTeam(ctx, user, CreateTeamInput{Name: "rogue"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("requires a name", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateTeam(ctx, manager, CreateTeamInput{})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("team view enriches members from the directory", func(t *testing.T) {
		svc, db := newTestService(t)
		svc.directory = &stubDirectory{members: []directory.Member{
			{ID: "rep-1", Email: "rep@perkwise.test"},
		}}
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})
		insertLeave(t, db, models.LeaveRequest{
			UserID:    "user-1",
			TeamID:    teamID,
			Type:      models.LeaveTimeOff,
			Status:    models.LeaveWaiting,
			StartDate: day(6, 1),
		})

		view, err := svc.GetTeam(ctx, "user-1", teamID)
		require.NoError(t, err)
		assert.Equal(t, "platform", view.Name)
		require.Len(t, view.Members, 2)
		assert.Equal(t, "rep@perkwise.test", view.Members[0].Email)
		assert.Empty(t, view.Members[1].Email)
		assert.Len(t, view.LeaveRequests, 1)
	})

	t.Run("team view survives a directory outage", func(t *testing.T) {
		svc, db := newTestService(t)
		svc.directory = &stubDirectory{err: errors.New("connection refused")}
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1"},
		})

		view, err := svc.GetTeam(ctx, "rep-1", teamID)
		require.NoError(t, err)
		require.Len(t, view.Members, 1)
		assert.Equal(t, "rep-1", view.Members[0].ID)
		assert.Empty(t, view.Members[0].Email)
	})

	t.Run("leave requests carry requester emails", func(t *testing.T) {
		svc, db := newTestService(t)
		svc.directory = &stubDirectory{members: []directory.Member{
			{ID: "user-1", Email: "one@perkwise.test"},
		}}
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})
		insertLeave(t, db, models.LeaveRequest{
			UserID:    "user-1",
			TeamID:    teamID,
			Type:      models.LeaveTimeOff,
			Status:    models.LeaveWaiting,
			StartDate: day(6, 2),
		})
		insertLeave(t, db, models.LeaveRequest{
			UserID:    "ghost",
			TeamID:    teamID,
			Type:      models.LeaveSickLeave,
			Status:    models.LeaveApproved,
			StartDate: day(6, 1),
		})

		requests, err := svc.GetTeamLeaveRequests(ctx, "rep-1", teamID)
		require.NoError(t, err)
		require.Len(t, requests, 2)
		assert.Equal(t, "user-1", requests[0].UserID)
		assert.Equal(t, "one@perkwise.test", requests[0].RequesterEmail)
		assert.Equal(t, "unknown", requests[1].RequesterEmail)
	})

	t.Run("leave request listing survives a directory outage", func(t *testing.T) {
		svc, db := newTestService(t)
		svc.directory = &stubDirectory{err: errors.New("connection refused")}
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})
		insertLeave(t, db, models.LeaveRequest{
			UserID:    "user-1",
			TeamID:    teamID,
			Type:      models.LeaveTimeOff,
			Status:    models.LeaveWaiting,
			StartDate: day(6, 1),
		})

		requests, err := svc.GetTeamLeaveRequests(ctx, "rep-1", teamID)
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, "unknown", requests[0].RequesterEmail)
	})

	t.Run("non-members cannot view the team", func(t *testing.T) {
		svc, db := newTestService(t)
		teamID := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1"},
		})

		_, err := svc.GetTeam(ctx, "outsider", teamID)
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

		_, err = svc.GetTeamLeaveRequests(ctx, "outsider", teamID)
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("my teams filters by membership", func(t *testing.T) {
		svc, db := newTestService(t)
		mine := insertTeam(t, db, models.Team{
			Name:             "platform",
			RepresentativeID: "rep-1",
			MemberIDs:        []string{"rep-1", "user-1"},
		})
		insertTeam(t, db, models.Team{
			Name:             "design",
			RepresentativeID: "rep-2",
			MemberIDs:        []string{"rep-2"},
		})

		teams, err := svc.GetMyTeams(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, teams, 1)
		assert.Equal(t, mine, teams[0].ID)
	})
}
