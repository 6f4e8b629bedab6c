// Package storage persists capture artifacts to durable object storage.
package storage

import (
	"context"

	"github.com/google/uuid"
)

// Store uploads an object and returns the public URL it is readable at.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// DeriveKey maps an optional caller-supplied filename to a storage key.
// Without a filename the key is a fresh identifier, so concurrent requests
// never collide; reusing a filename overwrites, which is the caller's
// responsibility.
func DeriveKey(filename string) string {
	if filename != "" {
		return filename + ".png"
	}
	return uuid.New().String() + ".png"
}
