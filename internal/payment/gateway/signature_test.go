package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignDeterministic(t *testing.T) {
	a := Sign("order_1", "pay_1", "secret")
	b := Sign("order_1", "pay_1", "secret")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded SHA-256
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("order_1", "pay_1", "secret")

	assert.True(t, VerifySignature("order_1", "pay_1", sig, "secret"))
	assert.False(t, VerifySignature("order_1", "pay_1", sig, "other-secret"))
	assert.False(t, VerifySignature("order_2", "pay_1", sig, "secret"))
	assert.False(t, VerifySignature("order_1", "pay_2", sig, "secret"))
	assert.False(t, VerifySignature("order_1", "pay_1", "forged", "secret"))
	assert.False(t, VerifySignature("order_1", "pay_1", "", "secret"))
}

func TestSignatureCoversSeparator(t *testing.T) {
	// "ab|c" and "a|bc" must not collide.
	assert.NotEqual(t, Sign("ab", "c", "secret"), Sign("a", "bc", "secret"))
}
