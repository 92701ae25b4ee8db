// Package totp wraps time-based one-time-password enrollment and
// verification. Parameters stay at the authenticator-app defaults: 30s
// step, 6 digits, SHA-1, one step of clock skew either way.
package totp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
)

// Enrollment is the shared-secret material handed to the user exactly once
// at registration.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
}

// Enroll generates a fresh secret for account under issuer and returns it
// with the otpauth:// URI that authenticator apps consume as a QR code.
func Enroll(issuer, account string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}
	return Enrollment{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}

// Verify reports whether code is valid for secret at the given time.
func Verify(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	return err == nil && ok
}
