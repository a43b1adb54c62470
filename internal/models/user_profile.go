package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserProfile carries the denormalized "most recent IP" projection kept in
// sync by the reconciler. Eventually consistent with the user_ips collection.
type UserProfile struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"user_id" json:"user_id"`
	LastRequestIP string             `bson:"last_request_ip,omitempty" json:"last_request_ip,omitempty"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
