package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/fjod/butchershop/internal/profiles/repository"
)

func setupAccounts(t *testing.T) (*MongoAccounts, func()) {
	if testing.Short() {
		t.Skip("skipping mongodb integration test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := repository.ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	accounts := NewMongoAccounts(db)
	require.NoError(t, accounts.CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return accounts, cleanup
}

func TestMongoAccounts(t *testing.T) {
	accounts, cleanup := setupAccounts(t)
	defer cleanup()
	ctx := context.Background()

	_, err := accounts.GetAccountByEmail(ctx, "ravi@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	account := &Account{UserID: "user-1", Email: "ravi@example.com", PasswordHash: "hash", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, accounts.CreateAccount(ctx, account))

	got, err := accounts.GetAccountByEmail(ctx, "Ravi@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "hash", got.PasswordHash)

	err = accounts.CreateAccount(ctx, &Account{UserID: "user-2", Email: "ravi@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
