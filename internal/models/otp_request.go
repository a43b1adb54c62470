package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Constants for OTP request status. An archived row is immutable history;
// only active rows participate in the one-row-per-phone invariant.
const (
	OTPStatusActive   = "active"
	OTPStatusArchived = "archived"
)

// OtpRequest represents the single active OTP row for a phone number
type OtpRequest struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone          string             `bson:"phone" json:"phone"`
	OTP            string             `bson:"otp" json:"-"`
	IPAddress      string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	RequestCount   int                `bson:"request_count" json:"request_count"`
	LastRequestAt  time.Time          `bson:"last_request_at" json:"last_request_at"`
	ExpiresAt      time.Time          `bson:"expires_at" json:"expires_at"`
	VerifiedAt     *time.Time         `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	Token          *string            `bson:"token,omitempty" json:"-"`
	TokenExpiresAt *time.Time         `bson:"token_expires_at,omitempty" json:"token_expires_at,omitempty"`
	Status         string             `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsVerified reports whether the phone has been claimed by a successful verify
func (r *OtpRequest) IsVerified() bool {
	return r.VerifiedAt != nil
}

// IsCodeExpired reports whether the OTP code is past its validity deadline
func (r *OtpRequest) IsCodeExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IsTokenExpired reports whether the exchange token is past its deadline
func (r *OtpRequest) IsTokenExpired(now time.Time) bool {
	return r.TokenExpiresAt == nil || now.After(*r.TokenExpiresAt)
}

// OTPRequestBody is the request body for issuing an OTP
type OTPRequestBody struct {
	Phone string `json:"phone" binding:"required"`
}

// OTPVerifyBody is the request body for verifying an OTP code
type OTPVerifyBody struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// OTPRedeemBody is the request body for redeeming an exchange token
type OTPRedeemBody struct {
	Token string `json:"token" binding:"required"`
}
