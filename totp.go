package authkit

import (
	"crypto/subtle"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/courierlog/authkit/internal"
)

// RFC 6238 parameters. The one-step drift window is part of the security
// contract, not a tunable: every extra window is extra online guessing
// surface.
const (
	totpSecretBytes = 20
	totpDigits      = 6
	totpPeriod      = 30 * time.Second
	totpDriftSteps  = 1
)

type totpManager struct {
	issuer string
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	return &totpManager{issuer: cfg.Issuer}
}

// GenerateSecret returns a fresh 20-byte shared secret as unpadded
// base32.
func (m *totpManager) GenerateSecret() (string, error) {
	raw, err := internal.GenerateRandomSecret(totpSecretBytes)
	if err != nil {
		return "", err
	}
	return internal.EncodeBase32(raw), nil
}

// ComputeCode derives the 6-digit code for the 30-second step containing
// at.
func (m *totpManager) ComputeCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, totpOpts())
}

// ValidateCode accepts a code matching the current step or one step of
// drift in either direction, exactly 3 candidate windows. Malformed
// codes and secrets are rejected outright.
func (m *totpManager) ValidateCode(secret, code string, now time.Time) bool {
	submitted := strings.TrimSpace(code)
	if len(submitted) != totpDigits || !allDigits(submitted) {
		return false
	}
	for step := -totpDriftSteps; step <= totpDriftSteps; step++ {
		expected, err := totp.GenerateCodeCustom(secret, now.Add(time.Duration(step)*totpPeriod), totpOpts())
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1 {
			return true
		}
	}
	return false
}

// ProvisionURI renders the otpauth payload an external collaborator
// turns into a QR image.
func (m *totpManager) ProvisionURI(secretBase32, account string) string {
	label := url.PathEscape(m.issuer + ":" + account)
	return "otpauth://totp/" + label +
		"?secret=" + url.QueryEscape(secretBase32) +
		"&issuer=" + url.QueryEscape(m.issuer)
}

func totpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(totpPeriod / time.Second),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
