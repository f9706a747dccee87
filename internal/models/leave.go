package models

import "time"

// LeaveType distinguishes vacation from sick leave; each has its own annual
// allowance in the quota settings.
type LeaveType string

const (
	LeaveTimeOff   LeaveType = "TimeOff"
	LeaveSickLeave LeaveType = "SickLeave"
)

// Valid reports whether the type is a known leave type.
func (t LeaveType) Valid() bool {
	return t == LeaveTimeOff || t == LeaveSickLeave
}

// LeaveStatus is the lifecycle state of a leave request.
type LeaveStatus string

const (
	LeaveWaiting  LeaveStatus = "Waiting"
	LeaveApproved LeaveStatus = "Approved"
	LeaveDeclined LeaveStatus = "Declined"
)

// Valid reports whether the status is a known lifecycle state.
func (s LeaveStatus) Valid() bool {
	switch s {
	case LeaveWaiting, LeaveApproved, LeaveDeclined:
		return true
	}
	return false
}

// Resolved reports whether the request has been decided. Resolved requests
// never change again.
func (s LeaveStatus) Resolved() bool {
	return s == LeaveApproved || s == LeaveDeclined
}

// LeaveRequest is a single time-off request. The start date's year scopes it
// to a quota year.
type LeaveRequest struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	TeamID     string      `json:"teamId"`
	Type       LeaveType   `json:"type"`
	Status     LeaveStatus `json:"status"`
	StartDate  time.Time   `json:"startDate"`
	EndDate    time.Time   `json:"endDate"`
	Comment    string      `json:"comment,omitempty"`
	ReviewedBy string      `json:"reviewedByRepresentativeId,omitempty"`
}
