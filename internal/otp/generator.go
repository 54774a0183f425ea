package otp

import (
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"sompo-quote-agent/pkg/apperr"
)

// Generator produces TOTP codes for the portal's authenticator
// challenge: SHA1, 30 second step, 6 digits.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) CurrentCode(seed string) (string, error) {
	const op = "CurrentCode"

	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(seed), " ", ""))
	if normalized == "" {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeOTPRequired, "totp_seed_missing")
	}

	code, err := totp.GenerateCode(normalized, time.Now())
	if err != nil {
		return "", apperr.WrapWithReason(op, apperr.CodeOTPFailed, err, "totp_generate_failed")
	}

	return code, nil
}
