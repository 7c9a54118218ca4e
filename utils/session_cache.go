package utils

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// RefreshSession represents a server-side session record paired with a
// refresh token. It lets "remember me" logins survive access-token expiry
// without re-entering credentials.
type RefreshSession struct {
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	ExpiresAt  time.Time `json:"expiresAt"`
	DeviceInfo string    `json:"deviceInfo"`
}

func sessionEncryptionKey() []byte {
	key := os.Getenv("SESSION_ENCRYPTION_KEY")
	if key == "" {
		// Fallback to a default key (not recommended for production)
		key = "default-encryption-key-32-bytes-long"
	}
	if len(key) < 32 {
		key = key + "00000000000000000000000000000000"
	}
	return []byte(key[:32])
}

// EncryptSession encrypts the session record before storing in Redis
func EncryptSession(session RefreshSession) (string, error) {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(sessionEncryptionKey())
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, jsonData, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptSession decrypts a session record from Redis
func DecryptSession(encryptedData string) (*RefreshSession, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(sessionEncryptionKey())
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var session RefreshSession
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// StoreRefreshSession stores an encrypted session record in Redis
func StoreRefreshSession(redisClient *redis.Client, token string, session RefreshSession, expiration time.Duration) error {
	if redisClient == nil {
		return fmt.Errorf("Redis client not available")
	}

	ctx := context.Background()

	encryptedData, err := EncryptSession(session)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	key := fmt.Sprintf("session:%s", token)
	err = redisClient.Set(ctx, key, encryptedData, expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}

	return nil
}

// RetrieveRefreshSession retrieves and decrypts a session record from Redis
func RetrieveRefreshSession(redisClient *redis.Client, token string) (*RefreshSession, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("Redis client not available")
	}

	ctx := context.Background()

	key := fmt.Sprintf("session:%s", token)
	encryptedData, err := redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session not found or expired")
		}
		return nil, fmt.Errorf("Redis error: %w", err)
	}

	session, err := DecryptSession(encryptedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		redisClient.Del(ctx, key)
		return nil, fmt.Errorf("session expired")
	}

	return session, nil
}

// RemoveRefreshSession removes a session record from Redis
func RemoveRefreshSession(redisClient *redis.Client, token string) error {
	if redisClient == nil {
		return fmt.Errorf("Redis client not available")
	}

	ctx := context.Background()
	key := fmt.Sprintf("session:%s", token)

	err := redisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to remove from Redis: %w", err)
	}

	return nil
}

// CleanupExpiredSessions removes all session records whose embedded expiry
// has passed. Redis TTLs already cover the normal case; this sweeps records
// written with a longer TTL than their logical lifetime.
func CleanupExpiredSessions(redisClient *redis.Client) error {
	if redisClient == nil {
		return fmt.Errorf("Redis client not available")
	}

	ctx := context.Background()

	keys, err := redisClient.Keys(ctx, "session:*").Result()
	if err != nil {
		return fmt.Errorf("failed to get keys: %w", err)
	}

	for _, key := range keys {
		encryptedData, err := redisClient.Get(ctx, key).Result()
		if err != nil {
			continue
		}

		session, err := DecryptSession(encryptedData)
		if err != nil {
			// Remove invalid data
			redisClient.Del(ctx, key)
			continue
		}

		if time.Now().After(session.ExpiresAt) {
			redisClient.Del(ctx, key)
		}
	}

	return nil
}
