package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"strings"
)

const backupCodeBytes = 5

// GenerateRandomSecret returns n cryptographically secure random bytes.
func GenerateRandomSecret(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// HashForStorage is the storage digest for raw credential material:
// hex-encoded SHA-256. Deterministic, no error path. Raw tokens and
// backup codes are never persisted, only this digest.
func HashForStorage(material string) string {
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// NewBackupCode returns a fresh recovery code: 10 hex characters shown
// as two 5-character groups ("ab12c-d34ef").
func NewBackupCode() (string, error) {
	raw, err := GenerateRandomSecret(backupCodeBytes)
	if err != nil {
		return "", err
	}
	return FormatBackupCode(hex.EncodeToString(raw)), nil
}

// FormatBackupCode inserts the display hyphen into a canonical code.
func FormatBackupCode(code string) string {
	if len(code) != 2*backupCodeBytes {
		return code
	}
	return code[:backupCodeBytes] + "-" + code[backupCodeBytes:]
}

// CanonicalizeBackupCode normalizes user input before hashing.
// Hyphens and whitespace are display artifacts, case is irrelevant.
func CanonicalizeBackupCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	return strings.ReplaceAll(code, " ", "")
}

// EncodeBase32 encodes a raw secret as unpadded base32, the alphabet
// authenticator apps expect.
func EncodeBase32(raw []byte) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
}

// ChunkBase32 groups a base32 secret into 4-character blocks separated
// by spaces for manual authenticator entry.
func ChunkBase32(secret string) string {
	var b strings.Builder
	b.Grow(len(secret) + len(secret)/4)
	for i := 0; i < len(secret); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(secret) {
			end = len(secret)
		}
		b.WriteString(secret[i:end])
	}
	return b.String()
}
