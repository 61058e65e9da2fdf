package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauth/polyauth"
)

func githubProfile(userID string) *polyauth.Profile {
	return &polyauth.Profile{
		Key:        polyauth.UserKey{ProviderID: "github", UserID: userID},
		AuthMethod: polyauth.MethodOAuth2,
		Activated:  true,
		OAuth2:     &polyauth.OAuth2Info{AccessToken: "tok-" + userID},
	}
}

func TestUserStoreSaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	saved, err := store.Save(ctx, githubProfile("jdoe"), polyauth.SaveModeLoggedIn)
	require.NoError(t, err)

	found, err := store.Find(ctx, saved.Key)
	require.NoError(t, err)
	assert.Equal(t, saved, found)

	// The store hands out copies, not aliases.
	found.OAuth2.AccessToken = "tampered"
	again, err := store.Find(ctx, saved.Key)
	require.NoError(t, err)
	assert.Equal(t, "tok-jdoe", again.OAuth2.AccessToken)

	_, err = store.Find(ctx, polyauth.UserKey{ProviderID: "github", UserID: "nobody"})
	assert.ErrorIs(t, err, polyauth.ErrNotFound)
}

func TestUserStoreRejectsInvalidProfiles(t *testing.T) {
	store := NewUserStore()
	p := githubProfile("jdoe")
	p.Password = &polyauth.PasswordInfo{HasherID: "bcrypt", Hash: "x"}
	_, err := store.Save(context.Background(), p, polyauth.SaveModeLoggedIn)
	assert.Error(t, err)
}

func TestUserStoreFindByEmailAndProvider(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	p := githubProfile("jdoe")
	p.Email = "jane@example.com"
	_, err := store.Save(ctx, p, polyauth.SaveModeLoggedIn)
	require.NoError(t, err)

	found, err := store.FindByEmailAndProvider(ctx, "jane@example.com", "github")
	require.NoError(t, err)
	assert.Equal(t, p.Key, found.Key)

	_, err = store.FindByEmailAndProvider(ctx, "jane@example.com", "twitter")
	assert.ErrorIs(t, err, polyauth.ErrNotFound)
}

func TestUserStoreLinkResolvesToPrimary(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	primary, err := store.Save(ctx, githubProfile("jdoe"), polyauth.SaveModeLoggedIn)
	require.NoError(t, err)

	additional := &polyauth.Profile{
		Key:        polyauth.UserKey{ProviderID: "twitter", UserID: "55"},
		AuthMethod: polyauth.MethodOAuth1,
		Activated:  true,
		OAuth1:     &polyauth.OAuth1Info{Token: "t", Secret: "s"},
	}
	linked, err := store.Link(ctx, primary, additional)
	require.NoError(t, err)
	assert.Equal(t, primary.Key, linked.Key)

	// Looking up the additional identity lands on the primary profile.
	found, err := store.Find(ctx, additional.Key)
	require.NoError(t, err)
	assert.Equal(t, primary.Key, found.Key)

	// Deleting the primary removes the link too.
	require.NoError(t, store.Delete(ctx, primary.Key))
	_, err = store.Find(ctx, additional.Key)
	assert.ErrorIs(t, err, polyauth.ErrNotFound)
}

func TestTokenDeleteIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	require.NoError(t, store.SaveToken(ctx, &polyauth.VerificationToken{
		UUID:      "tok-1",
		Email:     "jane@example.com",
		Purpose:   polyauth.SignUpActivation,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.DeleteToken(ctx, "tok-1"); err == nil {
				winners.Add(1)
			} else {
				assert.True(t, errors.Is(err, polyauth.ErrNotFound))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestDeleteExpiredTokensReturnsTheTokens(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	now := time.Now()

	require.NoError(t, store.SaveToken(ctx, &polyauth.VerificationToken{
		UUID: "live", Email: "a@example.com", Purpose: polyauth.SignUpActivation,
		ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, store.SaveToken(ctx, &polyauth.VerificationToken{
		UUID: "dead", Email: "b@example.com", Purpose: polyauth.SignUpActivation,
		ExpiresAt: now.Add(-time.Hour),
	}))

	deleted, err := store.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "dead", deleted[0].UUID)

	_, err = store.FindToken(ctx, "live")
	assert.NoError(t, err)
	_, err = store.FindToken(ctx, "dead")
	assert.ErrorIs(t, err, polyauth.ErrNotFound)
}

func TestAuthenticatorStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewAuthenticatorStore()
	now := time.Now()

	a := &polyauth.Authenticator{
		ID:          "auth-1",
		UserKey:     polyauth.UserKey{ProviderID: "github", UserID: "jdoe"},
		CreatedAt:   now,
		LastUsedAt:  now,
		ExpiresAt:   now.Add(12 * time.Hour),
		IdleTimeout: 30 * time.Minute,
	}
	require.NoError(t, store.SaveAuthenticator(ctx, a))

	found, err := store.FindAuthenticator(ctx, "auth-1")
	require.NoError(t, err)
	assert.Equal(t, a, found)

	require.NoError(t, store.DeleteAuthenticator(ctx, "auth-1"))
	assert.ErrorIs(t, store.DeleteAuthenticator(ctx, "auth-1"), polyauth.ErrNotFound)
}

func TestAuthenticatorStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewAuthenticatorStore()
	now := time.Now()

	save := func(id string, lastUsed, expires time.Time) {
		require.NoError(t, store.SaveAuthenticator(ctx, &polyauth.Authenticator{
			ID:          id,
			UserKey:     polyauth.UserKey{ProviderID: "github", UserID: id},
			CreatedAt:   now.Add(-time.Hour),
			LastUsedAt:  lastUsed,
			ExpiresAt:   expires,
			IdleTimeout: 30 * time.Minute,
		}))
	}
	save("live", now, now.Add(time.Hour))
	save("idle", now.Add(-time.Hour), now.Add(time.Hour))
	save("expired", now, now.Add(-time.Minute))

	n, err := store.DeleteExpiredAuthenticators(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.FindAuthenticator(ctx, "live")
	assert.NoError(t, err)
}
