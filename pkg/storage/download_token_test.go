package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)

	token, expiresAt, err := signer.Sign("file-123")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	fileID, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "file-123", fileID)
}

func TestDownloadSignerRejectsTampering(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)

	token, _, err := signer.Sign("file-123")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged := strings.Join([]string{parts[0], parts[1], strings.Repeat("0", len(parts[2]))}, ".")

	_, err = signer.Verify(forged)
	assert.Error(t, err)
}

func TestDownloadSignerRejectsWrongSecret(t *testing.T) {
	token, _, err := NewDownloadSigner("secret-a", time.Hour).Sign("file-123")
	require.NoError(t, err)

	_, err = NewDownloadSigner("secret-b", time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestDownloadSignerRejectsExpired(t *testing.T) {
	signer := NewDownloadSigner("secret", -time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Sign("file-123")
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorContains(t, err, "expired")
}

func TestDownloadSignerRequiresFileID(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	_, _, err := signer.Sign("")
	assert.Error(t, err)
}
