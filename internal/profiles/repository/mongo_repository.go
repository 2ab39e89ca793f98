package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/butchershop/internal/domain"
)

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) ProfileRepository {
	return &mongoRepository{
		collection: db.Collection("users"),
	}
}

func (m *mongoRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var profile domain.Profile

	err := m.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

func (m *mongoRepository) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	if profile.UserID == "" {
		return errors.New("profile without user id")
	}
	now := time.Now()

	update := bson.M{
		"$set": bson.M{
			"full_name":  profile.FullName,
			"phone":      profile.Phone,
			"house_no":   profile.HouseNo,
			"street":     profile.Street,
			"landmark":   profile.Landmark,
			"pincode":    profile.Pincode,
			"address":    profile.Address,
			"email":      profile.Email,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": profile.UserID}, update, opts); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{
				"role": bson.M{"$exists": true},
			}),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
