package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlockedIP is a globally blocked IP, independent of any user
type BlockedIP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IP        string             `bson:"ip" json:"ip"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedBy string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// BlockIPBody is the request body for globally blocking an IP
type BlockIPBody struct {
	IP   string `json:"ip" binding:"required"`
	Note string `json:"note"`
}
