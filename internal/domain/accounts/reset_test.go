package accounts

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPasswordResetIssuesToken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	account := seedInitializedOrganizer(t, repo, "chess@uni.example", strongPassword)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "chess@uni.example"))

	tokens := repo.ResetTokens()
	require.Len(t, tokens, 1)
	assert.Equal(t, account.ID, tokens[0].AccountID)
	assert.Nil(t, tokens[0].UsedAt)
	assert.WithinDuration(t, time.Now().Add(ResetTokenValidity), tokens[0].ExpiresAt, time.Minute)
}

func TestRequestPasswordResetHidesUnknownAccounts(t *testing.T) {
	svc, repo, _ := newTestService(t)
	pending := "pending-token"
	repo.SeedAccount(storage.Account{
		Type:        auth.AccountTypeAdmin,
		DisplayName: "Pending Admin",
		Email:       strPtr("pending@uni.example"),
		SetupToken:  &pending,
	})

	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@uni.example"))
	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "pending@uni.example"))
	assert.Empty(t, repo.ResetTokens())
}

func TestRequestPasswordResetReplacesPriorToken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedInitializedOrganizer(t, repo, "chess@uni.example", strongPassword)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "chess@uni.example"))
	first := repo.ResetTokens()[0].Token
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "chess@uni.example"))

	tokens := repo.ResetTokens()
	require.Len(t, tokens, 1)
	assert.NotEqual(t, first, tokens[0].Token)

	err := svc.ConfirmPasswordReset(context.Background(), first, anotherPassword)
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired reset token", apperr.Message(err))
}

func TestConfirmPasswordReset(t *testing.T) {
	svc, repo, mgr := newTestService(t)
	seedInitializedOrganizer(t, repo, "chess@uni.example", strongPassword)

	session, _, err := svc.Login(context.Background(), "chess@uni.example", strongPassword)
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "chess@uni.example"))
	token := repo.ResetTokens()[0].Token

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token, anotherPassword))

	_, err = mgr.Resolve(context.Background(), session.ID.String())
	require.Error(t, err)
	assert.Equal(t, 401, apperr.Status(err))

	_, _, err = svc.Login(context.Background(), "chess@uni.example", strongPassword)
	require.Error(t, err)
	_, _, err = svc.Login(context.Background(), "chess@uni.example", anotherPassword)
	require.NoError(t, err)
}

func TestConfirmPasswordResetConsumesTokenOnce(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedInitializedOrganizer(t, repo, "chess@uni.example", strongPassword)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "chess@uni.example"))
	token := repo.ResetTokens()[0].Token

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token, anotherPassword))

	err := svc.ConfirmPasswordReset(context.Background(), token, strongPassword)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.Status(err))
	assert.Equal(t, "Invalid or expired reset token", apperr.Message(err))

	_, _, err = svc.Login(context.Background(), "chess@uni.example", anotherPassword)
	require.NoError(t, err)
}

func TestConfirmPasswordResetConcurrentConfirmationsHaveOneWinner(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedInitializedOrganizer(t, repo, "chess@uni.example", strongPassword)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "chess@uni.example"))
	token := repo.ResetTokens()[0].Token

	const attempts = 4
	passwords := make([]string, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		passwords[i] = fmt.Sprintf("N3w-Secret#Value!2026-%02d", i)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.ConfirmPasswordReset(context.Background(), token, passwords[i])
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner)
			winner = i
			continue
		}
		assert.Equal(t, 400, apperr.Status(err))
		assert.Equal(t, "Invalid or expired reset token", apperr.Message(err))
	}
	require.NotEqual(t, -1, winner)

	_, _, err := svc.Login(context.Background(), "chess@uni.example", passwords[winner])
	require.NoError(t, err)
}

func TestConfirmPasswordResetRejectsExpiredToken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	account := seedInitializedOrganizer(t, repo, "chess@uni.example", strongPassword)
	require.NoError(t, repo.PasswordResets().Replace(context.Background(), account.ID, "stale-token", time.Now().Add(-time.Minute)))

	err := svc.ConfirmPasswordReset(context.Background(), "stale-token", anotherPassword)
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired reset token", apperr.Message(err))

	_, _, err = svc.Login(context.Background(), "chess@uni.example", strongPassword)
	require.NoError(t, err)
}

func TestConfirmPasswordResetKeepsTokenWhenPolicyRejects(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedInitializedOrganizer(t, repo, "chess@uni.example", strongPassword)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "chess@uni.example"))
	token := repo.ResetTokens()[0].Token

	err := svc.ConfirmPasswordReset(context.Background(), token, "weak")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.Status(err))

	tokens := repo.ResetTokens()
	require.Len(t, tokens, 1)
	assert.Nil(t, tokens[0].UsedAt)

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token, anotherPassword))
	_, _, err = svc.Login(context.Background(), "chess@uni.example", anotherPassword)
	require.NoError(t, err)
}
