package auth

import "testing"

func orgID(id int64) *int64 { return &id }

func TestPrincipalAuthorization(t *testing.T) {
	admin := Principal{AccountID: 1, Type: AccountTypeAdmin}
	organizer := Principal{AccountID: 2, Type: AccountTypeOrganizer, OrganizerID: orgID(7)}

	tests := []struct {
		name      string
		principal Principal
		target    int64
		want      bool
	}{
		{"admin manages any organizer", admin, 7, true},
		{"admin manages another organizer", admin, 9, true},
		{"organizer manages own record", organizer, 7, true},
		{"organizer denied for other organizer", organizer, 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.principal.CanManageOrganizer(tt.target); got != tt.want {
				t.Errorf("CanManageOrganizer(%d) = %v, want %v", tt.target, got, tt.want)
			}
			if got := tt.principal.CanManageEvent(tt.target); got != tt.want {
				t.Errorf("CanManageEvent(%d) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestPrincipalWithoutOrganizerLink(t *testing.T) {
	// The schema forbids an organizer account without an organizer_id, but
	// the guard must still deny it.
	broken := Principal{AccountID: 3, Type: AccountTypeOrganizer}
	if broken.CanManageOrganizer(7) {
		t.Error("organizer without organizer_id passed ownership check")
	}
}

func TestAccountTypeValid(t *testing.T) {
	if !AccountTypeAdmin.Valid() || !AccountTypeOrganizer.Valid() {
		t.Error("known account types reported invalid")
	}
	if AccountType("VIEWER").Valid() {
		t.Error("unknown account type reported valid")
	}
}
