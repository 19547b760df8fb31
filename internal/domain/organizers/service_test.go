package organizers

import (
	"context"
	"testing"
	"time"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/config"
	"github.com/campus-life-events/server/internal/email"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/campus-life-events/server/internal/storage/storagetest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminPrincipal = auth.Principal{AccountID: 99, Type: auth.AccountTypeAdmin}
)

func newTestService(t *testing.T) (*Service, *storagetest.Repo) {
	t.Helper()
	repo := storagetest.NewRepo()
	emailSvc, err := email.NewService(config.EmailConfig{
		RegistrationBaseURL: "https://campus-life.example/register",
	}, zerolog.Nop())
	require.NoError(t, err)
	return NewService(repo, emailSvc, zerolog.Nop()), repo
}

func organizerPrincipal(organizerID int64) auth.Principal {
	return auth.Principal{AccountID: organizerID + 100, Type: auth.AccountTypeOrganizer, OrganizerID: &organizerID}
}

func TestCreateProvisionsPendingAccount(t *testing.T) {
	svc, repo := newTestService(t)

	organizer, token, err := svc.Create(context.Background(), adminPrincipal, "Debate Club", "debate@uni.example")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "Debate Club", organizer.Name)

	account, err := repo.Accounts().GetBySetupToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, auth.AccountTypeOrganizer, account.Type)
	require.NotNil(t, account.OrganizerID)
	assert.Equal(t, organizer.ID, *account.OrganizerID)
	assert.Equal(t, "Debate Club", account.DisplayName)
	require.NotNil(t, account.Email)
	assert.Equal(t, "debate@uni.example", *account.Email)
	require.NotNil(t, account.SetupTokenExpiresAt)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *account.SetupTokenExpiresAt, time.Minute)
	assert.False(t, account.Initialized())
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, repo := newTestService(t)
	org := repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})

	_, _, err := svc.Create(context.Background(), organizerPrincipal(org.ID), "Debate Club", "debate@uni.example")
	require.Error(t, err)
	assert.Equal(t, 401, apperr.Status(err))
	assert.Equal(t, "insufficient permissions", apperr.Message(err))

	orgs, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, orgs, 1)
}

func TestGetNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.Status(err))
	assert.Equal(t, "Organizer not found", apperr.Message(err))
}

func TestUpdate(t *testing.T) {
	svc, repo := newTestService(t)
	org := repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})

	site := "https://chess.uni.example"
	updated, err := svc.Update(context.Background(), organizerPrincipal(org.ID), org.ID, storage.UpdateOrganizerParams{WebsiteURL: &site})
	require.NoError(t, err)
	require.NotNil(t, updated.WebsiteURL)
	assert.Equal(t, site, *updated.WebsiteURL)
	assert.Equal(t, "Chess Club", updated.Name)
}

func TestUpdateGuards(t *testing.T) {
	svc, repo := newTestService(t)
	org := repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})
	other := repo.SeedOrganizer(storage.Organizer{Name: "Debate Club"})
	name := "Renamed"

	_, err := svc.Update(context.Background(), organizerPrincipal(org.ID), other.ID, storage.UpdateOrganizerParams{Name: &name})
	require.Error(t, err)
	assert.Equal(t, 401, apperr.Status(err))
	assert.Equal(t, "cannot update another organizer", apperr.Message(err))

	_, err = svc.Update(context.Background(), adminPrincipal, org.ID, storage.UpdateOrganizerParams{})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.Status(err))
	assert.Equal(t, "No fields supplied for update", apperr.Message(err))

	_, err = svc.Update(context.Background(), adminPrincipal, 999, storage.UpdateOrganizerParams{Name: &name})
	require.Error(t, err)
	assert.Equal(t, 404, apperr.Status(err))
	assert.Equal(t, "Organizer not found", apperr.Message(err))
}

func TestDeleteCascades(t *testing.T) {
	svc, repo := newTestService(t)

	organizer, token, err := svc.Create(context.Background(), adminPrincipal, "Debate Club", "debate@uni.example")
	require.NoError(t, err)
	repo.SeedEvent(storage.Event{OrganizerID: organizer.ID, TitleDE: "Debattierabend", StartDateTime: time.Now().Add(48 * time.Hour)})

	require.NoError(t, svc.Delete(context.Background(), adminPrincipal, organizer.ID))

	_, err = svc.Get(context.Background(), organizer.ID)
	assert.Equal(t, 404, apperr.Status(err))
	_, err = repo.Accounts().GetBySetupToken(context.Background(), token)
	assert.Error(t, err)
	events, err := repo.Events().List(context.Background(), storage.ListEventsFilter{OrganizerID: &organizer.ID})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDeleteGuards(t *testing.T) {
	svc, repo := newTestService(t)
	org := repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})
	other := repo.SeedOrganizer(storage.Organizer{Name: "Debate Club"})

	err := svc.Delete(context.Background(), organizerPrincipal(org.ID), other.ID)
	require.Error(t, err)
	assert.Equal(t, 401, apperr.Status(err))
	assert.Equal(t, "cannot delete another organizer", apperr.Message(err))

	err = svc.Delete(context.Background(), adminPrincipal, 999)
	require.Error(t, err)
	assert.Equal(t, "Organizer not found", apperr.Message(err))
}

func TestListWithInviteStatus(t *testing.T) {
	svc, repo := newTestService(t)
	_, _, err := svc.Create(context.Background(), adminPrincipal, "Debate Club", "debate@uni.example")
	require.NoError(t, err)
	org := repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})

	rows, err := svc.ListWithInviteStatus(context.Background(), adminPrincipal)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.False(t, row.Initialized)
		if row.OrganizerID == org.ID {
			assert.Nil(t, row.AccountEmail)
		} else {
			require.NotNil(t, row.AccountEmail)
			assert.Equal(t, "debate@uni.example", *row.AccountEmail)
		}
	}

	_, err = svc.ListWithInviteStatus(context.Background(), organizerPrincipal(org.ID))
	require.Error(t, err)
	assert.Equal(t, "insufficient permissions", apperr.Message(err))
}

func TestRegenerateSetupToken(t *testing.T) {
	svc, repo := newTestService(t)
	organizer, oldToken, err := svc.Create(context.Background(), adminPrincipal, "Debate Club", "debate@uni.example")
	require.NoError(t, err)

	token, err := svc.RegenerateSetupToken(context.Background(), organizerPrincipal(organizer.ID), organizer.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, token)

	account, err := repo.Accounts().GetBySetupToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, organizer.ID, *account.OrganizerID)
	_, err = repo.Accounts().GetBySetupToken(context.Background(), oldToken)
	assert.Error(t, err)
}

func TestRegenerateSetupTokenGuards(t *testing.T) {
	svc, repo := newTestService(t)
	org := repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})
	other := repo.SeedOrganizer(storage.Organizer{Name: "Debate Club"})

	_, err := svc.RegenerateSetupToken(context.Background(), organizerPrincipal(org.ID), other.ID)
	require.Error(t, err)
	assert.Equal(t, 401, apperr.Status(err))
	assert.Equal(t, "cannot generate token for another organizer", apperr.Message(err))

	_, err = svc.RegenerateSetupToken(context.Background(), adminPrincipal, org.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.Status(err))
	assert.Equal(t, "Organizer account not found", apperr.Message(err))
}
