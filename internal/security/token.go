package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// accessTokenBytes is the entropy of a wheel access token.
const accessTokenBytes = 32

// GenerateAccessToken returns a random 64-character hex token for a purchase link.
func GenerateAccessToken() (string, error) {
	secret := make([]byte, accessTokenBytes)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return hex.EncodeToString(secret), nil
}

// LooksLikeAccessToken reports whether s has the shape of a generated access token.
func LooksLikeAccessToken(s string) bool {
	if len(s) != accessTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
