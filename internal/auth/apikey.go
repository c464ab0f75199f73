package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/database"
)

const (
	adminKeyPrefix    = "tx_"
	adminKeyRandBytes = 28
)

func generateAdminKey() (string, error) {
	b := make([]byte, adminKeyRandBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return adminKeyPrefix + hex.EncodeToString(b), nil
}

func HashAdminKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

var errAdminKeyNotFound = errors.New("admin key not found")

// LookupAdminKey resolves an X-Admin-Key header value to the admin's user ID.
func LookupAdminKey(ctx context.Context, db database.DBTX, key string) (string, error) {
	if len(key) < len(adminKeyPrefix) || key[:len(adminKeyPrefix)] != adminKeyPrefix {
		return "", errAdminKeyNotFound
	}

	keyHash := HashAdminKey(key)

	var userID string
	err := db.QueryRow(ctx,
		"SELECT id FROM users WHERE api_key_hash = $1 AND is_admin", keyHash,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errAdminKeyNotFound
		}
		return "", fmt.Errorf("lookup admin key: %w", err)
	}

	return userID, nil
}
