package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalQuery(t *testing.T) {
	t.Run("sorts field names by ordinal byte order", func(t *testing.T) {
		fields := map[string]string{
			"vnp_TxnRef":  "abc",
			"vnp_Amount":  "1000000",
			"vnp_Command": "pay",
		}
		result := canonicalQuery(fields)
		assert.Equal(t, "vnp_Amount=1000000&vnp_Command=pay&vnp_TxnRef=abc", result)
	})

	t.Run("encodes spaces as plus", func(t *testing.T) {
		fields := map[string]string{
			"vnp_OrderInfo": "thanh toan lich hen",
		}
		result := canonicalQuery(fields)
		assert.Equal(t, "vnp_OrderInfo=thanh+toan+lich+hen", result)
	})

	t.Run("drops empty fields before signing", func(t *testing.T) {
		fields := map[string]string{
			"vnp_TxnRef":   "abc",
			"vnp_BankCode": "",
		}
		result := canonicalQuery(fields)
		assert.Equal(t, "vnp_TxnRef=abc", result)
	})

	t.Run("percent encodes reserved characters", func(t *testing.T) {
		fields := map[string]string{
			"vnp_ReturnUrl": "https://example.com/return?x=1",
		}
		result := canonicalQuery(fields)
		assert.Equal(t, "vnp_ReturnUrl=https%3A%2F%2Fexample.com%2Freturn%3Fx%3D1", result)
	})
}

func TestSignFields(t *testing.T) {
	t.Run("matches known HMAC-SHA512 vector", func(t *testing.T) {
		fields := map[string]string{
			"vnp_Amount":    "1000000",
			"vnp_OrderInfo": "thanh toan lich hen",
			"vnp_TxnRef":    "20240115103000-a1b2c3d4",
		}
		hash := signFields(fields, "vnpay-test-secret")
		assert.Equal(t, "24d76d58bf6c824a4d6f34cbd16eb10707efcc0626af61cce5e38c76c677006f86bef921c4f2af63a9e6456dc5ccb687bcc211c1619f68f0829420c472280357", hash)
	})

	t.Run("different secret yields different signature", func(t *testing.T) {
		fields := map[string]string{"vnp_TxnRef": "abc"}
		assert.NotEqual(t, signFields(fields, "secret-one"), signFields(fields, "secret-two"))
	})
}

func TestVerifySignature(t *testing.T) {
	secret := "vnpay-test-secret"
	fields := map[string]string{
		"vnp_Amount":       "50000000",
		"vnp_ResponseCode": "00",
		"vnp_TxnRef":       "20240115103000-a1b2c3d4",
	}
	validHash := signFields(fields, secret)

	t.Run("accepts untampered parameters", func(t *testing.T) {
		assert.True(t, verifySignature(fields, secret, validHash))
	})

	t.Run("rejects a tampered amount", func(t *testing.T) {
		tampered := map[string]string{
			"vnp_Amount":       "1",
			"vnp_ResponseCode": "00",
			"vnp_TxnRef":       "20240115103000-a1b2c3d4",
		}
		assert.False(t, verifySignature(tampered, secret, validHash))
	})

	t.Run("rejects a forged hash", func(t *testing.T) {
		assert.False(t, verifySignature(fields, secret, "deadbeef"))
	})
}
