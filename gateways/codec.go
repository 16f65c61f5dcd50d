package gateways

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoSecret is returned when a signing secret is missing. Config validation
// catches this at boot; hitting it at runtime means the engine was built by
// hand with an empty GatewayConfig.
var ErrNoSecret = errors.New("signing secret is not configured")

// FormatAmount renders an amount with exactly two fractional digits. The
// gateway recomputes signatures over the exact string form, so equal decimal
// values must always render byte-identically.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// NormalizeAmount parses an amount string into a decimal quantized to two
// places. The second return is false when the input is absent or not a number.
func NormalizeAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d.Round(2), true
}

// SignFields builds the eSewa signing string from the payload in the exact
// order given by signedFields and returns the base64 HMAC-SHA256 digest.
// Field order is part of the gateway contract: a reordered string still
// produces a valid-looking signature that the gateway silently rejects.
func SignFields(payload map[string]string, signedFields []string, secret string) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}

	pairs := make([]string, 0, len(signedFields))
	for _, field := range signedFields {
		pairs = append(pairs, fmt.Sprintf("%s=%s", field, payload[field]))
	}
	message := strings.Join(pairs, ",")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Checksum concatenates the values in the given order, appends the secret and
// returns the SHA-512 hex digest. Fonepay validates against whatever order the
// merchant registered, so callers must pass values in that order.
func Checksum(values []string, secret string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(v)
	}
	b.WriteString(secret)
	sum := sha512.Sum512([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
