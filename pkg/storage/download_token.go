package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadSigner mints and verifies time-limited download tokens so a
// stored file can be fetched without an Authorization header.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner constructs a signer with the provided secret and TTL.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign returns a token granting access to the given file until expiry.
func (s *DownloadSigner) Sign(fileID string) (string, time.Time, error) {
	if fileID == "" {
		return "", time.Time{}, fmt.Errorf("fileID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(fileID))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encodedID, ts, s.signature(encodedID, ts)}, ".")
	return token, expiresAt, nil
}

// Verify validates a token and returns the file ID it grants access to.
func (s *DownloadSigner) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid token format")
	}
	encodedID, ts, signature := parts[0], parts[1], parts[2]

	expected := s.signature(encodedID, ts)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", fmt.Errorf("invalid token signature")
	}

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", fmt.Errorf("token expired")
	}

	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", fmt.Errorf("decode file id: %w", err)
	}
	return string(rawID), nil
}

func (s *DownloadSigner) signature(encodedID, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedID + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
