package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"time"

	"github.com/xlzd/gotp"
)

// 20 random bytes, 160 bits, 32 base32 characters with no padding.
const totpSecretBytes = 20

const totpPeriodSeconds = 30
const totpDigits = 6

// TOTPEngine computes and checks 6-digit, 30-second TOTP codes. The
// tolerance window is a step count on either side of "now" (default 1,
// i.e. codes up to 30s old or ahead are accepted).
type TOTPEngine struct {
	Issuer string
	Window int
}

func NewTOTPEngine(issuer string) *TOTPEngine {
	return &TOTPEngine{Issuer: issuer, Window: 1}
}

// GenerateSecret draws a fresh shared secret from crypto/rand.
func (e *TOTPEngine) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// payload an authenticator app
// enrolls from. The account label is the user's email.
func (e *TOTPEngine) ProvisioningURI(secret, account string) string {
	return gotp.NewDefaultTOTP(secret).ProvisioningUri(account, e.Issuer)
}

// CodeAt returns the expected code for the given instant.
func (e *TOTPEngine) CodeAt(secret string, at time.Time) string {
	return gotp.NewDefaultTOTP(secret).At(at.Unix())
}

// VerifyCode checks a submitted code against the secret for the current
// step and Window steps on either side, with constant-time comparison.
func (e *TOTPEngine) VerifyCode(secret, code string) bool {
	if len(code) != totpDigits || !isDigits(code) {
		return false
	}
	if _, err := base32.StdEncoding.DecodeString(secret); err != nil {
		return false
	}
	totp := gotp.NewDefaultTOTP(secret)
	now := time.Now().Unix()
	for step := -e.Window; step <= e.Window; step++ {
		expected := totp.At(now + int64(step*totpPeriodSeconds))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
