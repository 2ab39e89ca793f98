package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fjod/butchershop/internal/domain"
)

func setupTestDB(t *testing.T) (ProfileRepository, *mongo.Database, func()) {
	if testing.Short() {
		t.Skip("skipping mongodb integration test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.(*mongoRepository).CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, db, cleanup
}

func TestGetProfile_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	profile, err := repo.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Nil(t, profile)
}

func TestSaveProfile_CreateAndMerge(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	profile := &domain.Profile{
		UserID:   "user-1",
		FullName: "Ravi Patel",
		Phone:    "9876543210",
		HouseNo:  "12",
		Street:   "Ward 4",
		Pincode:  "370201",
		Email:    "ravi@example.com",
	}
	profile.Address = profile.ComposeAddress()
	require.NoError(t, repo.SaveProfile(ctx, profile))

	got, err := repo.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, *profile, *got)

	// role is granted out of band and survives later saves
	_, err = db.Collection("users").UpdateOne(ctx, bson.M{"_id": "user-1"}, bson.M{"$set": bson.M{"role": domain.RoleAdmin}})
	require.NoError(t, err)

	profile.Landmark = "Near Temple"
	profile.Role = "customer"
	profile.Address = profile.ComposeAddress()
	require.NoError(t, repo.SaveProfile(ctx, profile))

	got, err = repo.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Near Temple", got.Landmark)
	assert.Equal(t, "12, Ward 4, Near Temple, Gandhidham, Gujarat - 370201", got.Address)
	assert.True(t, got.IsAdmin())
}

func TestSaveProfile_RequiresUserID(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	assert.Error(t, repo.SaveProfile(context.Background(), &domain.Profile{FullName: "x"}))
}

func TestConnectMongoDB_MajorityConcerns(t *testing.T) {
	_, db, cleanup := setupTestDB(t)
	defer cleanup()

	assert.Equal(t, "testdb", db.Name())
	require.NotNil(t, db.WriteConcern())
	assert.Equal(t, "majority", db.WriteConcern().W)
	require.NotNil(t, db.ReadConcern())
	assert.Equal(t, "majority", db.ReadConcern().Level)
}

func TestConnectMongoDB_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := ConnectMongoDB(ctx, "mongodb://127.0.0.1:1", "testdb")
	assert.Error(t, err)
}
