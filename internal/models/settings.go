package models

// QuotaSettings is the global annual leave allowance per type. A single row
// in storage, passed explicitly into every quota check.
type QuotaSettings struct {
	MaxVacationDays int `json:"maxVacationDays"`
	MaxSickDays     int `json:"maxSickDays"`
}

// MaxForType returns the configured allowance for the given leave type.
func (s QuotaSettings) MaxForType(t LeaveType) int {
	if t == LeaveSickLeave {
		return s.MaxSickDays
	}
	return s.MaxVacationDays
}
