package domain

import (
	"crypto/rand"
	"encoding/base64"
)

const redemptionCodeLength = 12

// GenerateRedemptionCode returns a random URL-safe code printed on tickets and encoded in
// their QR codes.
func GenerateRedemptionCode() (string, error) {
	randomBytes := make([]byte, redemptionCodeLength)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}
