package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
)

// canonicalQuery builds the string the gateway signs: every non-empty field,
// keys sorted by ordinal byte comparison, values form-encoded (space is "+").
// url.Values.Encode already does exactly that.
func canonicalQuery(fields map[string]string) string {
	values := url.Values{}
	for key, value := range fields {
		if value == "" {
			continue
		}
		values.Set(key, value)
	}
	return values.Encode()
}

// signFields computes the lower-case hex HMAC-SHA512 of the canonical query
// under the shared secret.
func signFields(fields map[string]string, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonicalQuery(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature recomputes the signature over fields and compares it to the
// received hash in constant time.
func verifySignature(fields map[string]string, secret, receivedHash string) bool {
	expected := signFields(fields, secret)
	return hmac.Equal([]byte(expected), []byte(receivedHash))
}
