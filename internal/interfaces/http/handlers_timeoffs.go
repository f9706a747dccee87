package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/internal/timeoffs"
)

// CreateTeamRequest is the body for POST /api/admin/teams.
type CreateTeamRequest struct {
	Name      string   `json:"name" binding:"required"`
	MemberIDs []string `json:"memberIds"`
}

// CreateTeam handles POST /api/admin/teams.
func (h *Handlers) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	identity := callerIdentity(c)
	team, err := h.timeoffs.CreateTeam(c.Request.Context(), identity, timeoffs.CreateTeamInput{
		Name:      req.Name,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondCreated(c, team)
}

// GetTeam handles GET /api/teams/:teamId.
func (h *Handlers) GetTeam(c *gin.Context) {
	identity := callerIdentity(c)
	view, err := h.timeoffs.GetTeam(c.Request.Context(), identity.UserID, c.Param("teamId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, view)
}

// GetMyTeams handles GET /api/teams/my.
func (h *Handlers) GetMyTeams(c *gin.Context) {
	identity := callerIdentity(c)
	teams, err := h.timeoffs.GetMyTeams(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, teams)
}

// CreateLeaveRequestBody is the body for POST /api/teams/:teamId/leave-requests.
type CreateLeaveRequestBody struct {
	Type      string `json:"type" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
	Comment   string `json:"comment"`
}

// CreateLeaveRequest handles POST /api/teams/:teamId/leave-requests.
func (h *Handlers) CreateLeaveRequest(c *gin.Context) {
	var req CreateLeaveRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		respondBadRequest(c, "invalid startDate, want YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		respondBadRequest(c, "invalid endDate, want YYYY-MM-DD")
		return
	}

	identity := callerIdentity(c)
	request, err := h.timeoffs.CreateLeaveRequest(c.Request.Context(), timeoffs.CreateLeaveRequestInput{
		UserID:  identity.UserID,
		TeamID:  c.Param("teamId"),
		Type:    models.LeaveType(req.Type),
		Start:   start,
		End:     end,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondCreated(c, request)
}

// GetTeamLeaveRequests handles GET /api/teams/:teamId/leave-requests.
func (h *Handlers) GetTeamLeaveRequests(c *gin.Context) {
	identity := callerIdentity(c)
	requests, err := h.timeoffs.GetTeamLeaveRequests(c.Request.Context(), identity.UserID, c.Param("teamId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, requests)
}

// ResolveLeaveRequestBody is the body for PUT /api/admin/leave-requests/:id.
type ResolveLeaveRequestBody struct {
	Status string `json:"status" binding:"required"`
}

// ResolveLeaveRequest handles PUT /api/admin/leave-requests/:id.
func (h *Handlers) ResolveLeaveRequest(c *gin.Context) {
	var req ResolveLeaveRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	identity := callerIdentity(c)
	err := h.timeoffs.ResolveLeaveRequest(c.Request.Context(), c.Param("id"), models.LeaveStatus(req.Status), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, nil)
}

// GetUserStats handles GET /api/teams/:teamId/my-stats.
func (h *Handlers) GetUserStats(c *gin.Context) {
	identity := callerIdentity(c)
	stats, err := h.timeoffs.GetUserStats(c.Request.Context(), identity.UserID, c.Param("teamId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, stats)
}

// GetSettings handles GET /api/settings.
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.timeoffs.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, settings)
}

// UpdateSettingsRequest is the body for PUT /api/admin/settings.
type UpdateSettingsRequest struct {
	MaxVacationDays int `json:"maxVacationDays" binding:"required"`
	MaxSickDays     int `json:"maxSickDays" binding:"required"`
}

// UpdateSettings handles PUT /api/admin/settings.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	identity := callerIdentity(c)
	err := h.timeoffs.UpdateSettings(c.Request.Context(), identity, models.QuotaSettings{
		MaxVacationDays: req.MaxVacationDays,
		MaxSickDays:     req.MaxSickDays,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, nil)
}
