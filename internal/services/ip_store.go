package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserIPStore is the durable-store contract for (user, IP) rows
type UserIPStore interface {
	// BulkUpsert inserts unseen pairs and bumps updated_at on known ones.
	// created_at never changes on a repeat sighting.
	BulkUpsert(ctx context.Context, pairs []models.UserIPPair, now time.Time) error
	// LatestForUser returns the most recently touched row for a user,
	// ordered by updated_at then created_at descending, or nil when the
	// user has no rows
	LatestForUser(ctx context.Context, userID string) (*models.UserIP, error)
	// BlockedIPs returns the IPs flagged blocked for a user
	BlockedIPs(ctx context.Context, userID string) ([]string, error)
	// SetBlocked flips the admin-controlled block flag on an existing pair
	SetBlocked(ctx context.Context, userID, ip string, blocked bool) error
}

// BlockedIPStore is the durable-store contract for globally blocked IPs
type BlockedIPStore interface {
	All(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]models.BlockedIP, error)
	Block(ctx context.Context, ip, note, createdBy string) (*models.BlockedIP, error)
	Unblock(ctx context.Context, ip string) error
}

// ProfileStore writes the derived "most recent IP" projection
type ProfileStore interface {
	// SetLastRequestIP upserts the user profile, creating it if absent
	SetLastRequestIP(ctx context.Context, userID, ip string, now time.Time) error
}

// MongoUserIPStore is the MongoDB-backed UserIPStore
type MongoUserIPStore struct {
	collection *mongo.Collection
}

// NewMongoUserIPStore creates a user IP store over the given collection
func NewMongoUserIPStore(db *mongo.Database, collectionName string) *MongoUserIPStore {
	return &MongoUserIPStore{collection: db.Collection(collectionName)}
}

func (s *MongoUserIPStore) BulkUpsert(ctx context.Context, pairs []models.UserIPPair, now time.Time) error {
	if len(pairs) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(pairs))
	for _, pair := range pairs {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"user_id": pair.UserID, "ip": pair.IP}).
			SetUpdate(bson.M{
				"$set": bson.M{"updated_at": now},
				"$setOnInsert": bson.M{
					"created_at": now,
					"is_blocked": false,
				},
			}).
			SetUpsert(true))
	}

	_, err := s.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		// A concurrent upsert for the same pair can race the unique index;
		// the pair exists either way, which is all this operation promises
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to bulk upsert user IPs: %w", err)
	}
	return nil
}

func (s *MongoUserIPStore) LatestForUser(ctx context.Context, userID string) (*models.UserIP, error) {
	// A bulk upsert sets many rows to the same updated_at; created_at breaks
	// the tie
	opts := options.FindOne().SetSort(bson.D{
		{Key: "updated_at", Value: -1},
		{Key: "created_at", Value: -1},
	})

	var row models.UserIP
	err := s.collection.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&row)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest user IP: %w", err)
	}
	return &row, nil
}

func (s *MongoUserIPStore) BlockedIPs(ctx context.Context, userID string) ([]string, error) {
	cursor, err := s.collection.Find(ctx, bson.M{
		"user_id":    userID,
		"is_blocked": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find blocked user IPs: %w", err)
	}
	defer cursor.Close(ctx)

	ips := []string{}
	for cursor.Next(ctx) {
		var row models.UserIP
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode user IP: %w", err)
		}
		ips = append(ips, row.IP)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocked user IPs: %w", err)
	}
	return ips, nil
}

func (s *MongoUserIPStore) SetBlocked(ctx context.Context, userID, ip string, blocked bool) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "ip": ip},
		bson.M{"$set": bson.M{"is_blocked": blocked, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update user IP block flag: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrUserIPPairNotFound
	}
	return nil
}

// MongoBlockedIPStore is the MongoDB-backed BlockedIPStore
type MongoBlockedIPStore struct {
	collection *mongo.Collection
}

// NewMongoBlockedIPStore creates a blocked IP store over the given collection
func NewMongoBlockedIPStore(db *mongo.Database, collectionName string) *MongoBlockedIPStore {
	return &MongoBlockedIPStore{collection: db.Collection(collectionName)}
}

func (s *MongoBlockedIPStore) All(ctx context.Context) ([]string, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	ips := make([]string, 0, len(rows))
	for _, row := range rows {
		ips = append(ips, row.IP)
	}
	return ips, nil
}

func (s *MongoBlockedIPStore) List(ctx context.Context) ([]models.BlockedIP, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked IPs: %w", err)
	}
	defer cursor.Close(ctx)

	rows := []models.BlockedIP{}
	for cursor.Next(ctx) {
		var row models.BlockedIP
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode blocked IP: %w", err)
		}
		rows = append(rows, row)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocked IPs: %w", err)
	}
	return rows, nil
}

func (s *MongoBlockedIPStore) Block(ctx context.Context, ip, note, createdBy string) (*models.BlockedIP, error) {
	now := time.Now()
	row := &models.BlockedIP{
		IP:        ip,
		Note:      note,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.collection.InsertOne(ctx, row)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrBlockedIPExists
		}
		return nil, fmt.Errorf("failed to insert blocked IP: %w", err)
	}
	return row, nil
}

func (s *MongoBlockedIPStore) Unblock(ctx context.Context, ip string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"ip": ip})
	if err != nil {
		return fmt.Errorf("failed to delete blocked IP: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrBlockedIPNotFound
	}
	return nil
}

// MongoProfileStore is the MongoDB-backed ProfileStore
type MongoProfileStore struct {
	collection *mongo.Collection
}

// NewMongoProfileStore creates a profile store over the given collection
func NewMongoProfileStore(db *mongo.Database, collectionName string) *MongoProfileStore {
	return &MongoProfileStore{collection: db.Collection(collectionName)}
}

func (s *MongoProfileStore) SetLastRequestIP(ctx context.Context, userID, ip string, now time.Time) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"last_request_ip": ip, "updated_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}
