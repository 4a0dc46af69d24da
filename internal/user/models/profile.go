// Package models holds the platform user profile.
package models

import "incorp/pkg/domain"

// Profile is the off-chain mirror of a user's on-chain state. The chain is
// authoritative for the verification flag; this row exists so request paths
// can check it without a chain read.
type Profile struct {
	ID domain.UserID `json:"id"`
	// KYCVerified mirrors the on-chain verification flag. It only ever
	// transitions false to true.
	KYCVerified bool `json:"kyc_verified"`
}
