package auth

// AccountType distinguishes administrators from organizer accounts. Values
// match the Postgres enum.
type AccountType string

const (
	AccountTypeAdmin     AccountType = "ADMIN"
	AccountTypeOrganizer AccountType = "ORGANIZER"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeAdmin || t == AccountTypeOrganizer
}

// Principal is the authenticated identity resolved from a session cookie.
// OrganizerID is set exactly when Type is ORGANIZER.
type Principal struct {
	AccountID   int64
	Type        AccountType
	OrganizerID *int64
}

func (p Principal) IsAdmin() bool {
	return p.Type == AccountTypeAdmin
}

// CanManageOrganizer reports whether the principal may mutate the given
// organizer: admins always, organizers only for their own record.
func (p Principal) CanManageOrganizer(organizerID int64) bool {
	if p.IsAdmin() {
		return true
	}
	return p.OrganizerID != nil && *p.OrganizerID == organizerID
}

// CanManageEvent reports whether the principal may mutate an event owned by
// the given organizer.
func (p Principal) CanManageEvent(ownerOrganizerID int64) bool {
	return p.CanManageOrganizer(ownerOrganizerID)
}
