package lockmgr

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	bitLength = 256
)

// generateOwnerID creates a new unique owner ID
// The owner ID is a random value of bitLength bits.
func generateOwnerID() ([]byte, error) {
	randomBytes := make([]byte, bitLength/8)
	_, err := rand.Read(randomBytes)
	return randomBytes, err
}

// FormatOwnerID returns the textual form of an owner ID, as stored in the lock record.
func FormatOwnerID(ownerID []byte) string {
	return hex.EncodeToString(ownerID)
}

// ParseOwnerID is the inverse of FormatOwnerID.
func ParseOwnerID(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
