package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserIP is one durable row per observed (user, IP) pair. CreatedAt is the
// first sighting and never changes; UpdatedAt advances on every later one.
type UserIP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	IP        string             `bson:"ip" json:"ip"`
	IsBlocked bool               `bson:"is_blocked" json:"is_blocked"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// UserIPPair is a (user, IP) sighting flattened out of the ingest buffer
type UserIPPair struct {
	UserID string
	IP     string
}
