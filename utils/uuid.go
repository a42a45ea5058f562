package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier string.
// Version 7 keeps bid IDs roughly ordered by creation time.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
