package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidPassword = errors.New("invalid admin password")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewSessionID issues a session ID for clients that can't generate one
// themselves. The "sess_" prefix matches the client-generated format so
// the two are interchangeable everywhere.
func NewSessionID() string {
	return "sess_" + uuid.NewString()
}

// CheckAdminPassword compares the submitted password against the
// configured one in constant time.
func CheckAdminPassword(got, want string) error {
	if want == "" || !hmac.Equal([]byte(got), []byte(want)) {
		return ErrInvalidPassword
	}
	return nil
}
