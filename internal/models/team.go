package models

// Team is a named grouping of users with one designated representative who
// approves the team's leave requests. The representative is implicitly a
// member.
type Team struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	RepresentativeID string   `json:"representativeId"`
	MemberIDs        []string `json:"memberIds"`
}

// HasMember reports whether the user belongs to the team, counting the
// representative as a member.
func (t *Team) HasMember(userID string) bool {
	if userID == "" {
		return false
	}
	if t.RepresentativeID == userID {
		return true
	}
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
