package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	users *mongo.Collection
}

func NewMongoRepository(client *mongo.Client, dbName string) *MongoRepository {
	return &MongoRepository{
		users: client.Database(dbName).Collection("users"),
	}
}

// EnsureIndexes creates the lookup and ranking indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "clerkId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "rating", Value: -1}, {Key: "username", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindByAuthID(ctx context.Context, authID string) (*model.User, error) {
	if authID == "" {
		return nil, ErrUserNotFound
	}

	var user model.User
	err := r.users.FindOne(ctx, bson.M{"clerkId": authID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *MongoRepository) TopByRating(ctx context.Context, limit int) ([]model.User, error) {
	if limit < 1 {
		return nil, errors.New("invalid limit")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "username", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"submissions": 0, "matches": 0, "email": 0})

	cursor, err := r.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var results []model.User
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return results, nil
}
