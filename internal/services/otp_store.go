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

// MongoOTPStore is the MongoDB-backed OTPStore. The partial unique index on
// (phone, status=active) enforces the one-active-row invariant; this store
// only ever touches active rows, archived history is append-only.
type MongoOTPStore struct {
	collection *mongo.Collection
}

// NewMongoOTPStore creates an OTP store over the given collection
func NewMongoOTPStore(db *mongo.Database, collectionName string) *MongoOTPStore {
	return &MongoOTPStore{collection: db.Collection(collectionName)}
}

func (s *MongoOTPStore) FindActiveByPhone(ctx context.Context, phone string) (*models.OtpRequest, error) {
	var row models.OtpRequest
	err := s.collection.FindOne(ctx, bson.M{
		"phone":  phone,
		"status": models.OTPStatusActive,
	}).Decode(&row)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrOTPNotFound
		}
		return nil, fmt.Errorf("failed to find OTP request: %w", err)
	}
	return &row, nil
}

func (s *MongoOTPStore) UpsertActive(ctx context.Context, req *models.OtpRequest) error {
	// Equality fields of the filter are copied into an inserted document,
	// so phone and status need no $setOnInsert
	filter := bson.M{
		"phone":  req.Phone,
		"status": models.OTPStatusActive,
	}
	update := bson.M{
		"$set": bson.M{
			"otp":             req.OTP,
			"ip_address":      req.IPAddress,
			"request_count":   req.RequestCount,
			"last_request_at": req.LastRequestAt,
			"expires_at":      req.ExpiresAt,
			"updated_at":      req.UpdatedAt,
		},
		// A resend clears any stale verified flag or token from an earlier cycle
		"$unset": bson.M{
			"verified_at":      "",
			"token":            "",
			"token_expires_at": "",
		},
		"$setOnInsert": bson.M{
			"created_at": req.CreatedAt,
		},
	}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// Two concurrent first requests for the same phone can race the
		// upsert; the loser's retry path is the throttle gate on resend
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to upsert OTP request: %w", err)
	}
	return nil
}

func (s *MongoOTPStore) SetVerified(ctx context.Context, phone, token string, tokenExpiresAt, now time.Time) error {
	filter := bson.M{
		"phone":  phone,
		"status": models.OTPStatusActive,
	}
	update := bson.M{
		"$set": bson.M{
			"verified_at":      now,
			"token":            token,
			"token_expires_at": tokenExpiresAt,
			"updated_at":       now,
		},
	}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set verified: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrOTPNotFound
	}
	return nil
}

func (s *MongoOTPStore) FindActiveByToken(ctx context.Context, token string) (*models.OtpRequest, error) {
	var row models.OtpRequest
	err := s.collection.FindOne(ctx, bson.M{
		"token":  token,
		"status": models.OTPStatusActive,
	}).Decode(&row)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find OTP request by token: %w", err)
	}
	return &row, nil
}

func (s *MongoOTPStore) ArchiveByToken(ctx context.Context, token string, now time.Time) error {
	filter := bson.M{
		"token":  token,
		"status": models.OTPStatusActive,
	}
	update := bson.M{
		"$set": bson.M{
			"status":     models.OTPStatusArchived,
			"updated_at": now,
		},
		// The token is single-use; clearing it also keeps the sparse unique
		// index clean for future cycles
		"$unset": bson.M{
			"token":            "",
			"token_expires_at": "",
		},
	}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to archive OTP request: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrTokenNotFound
	}
	return nil
}
