package qr

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"eventhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePass() Pass {
	return Pass{
		OrderID: "order-1",
		EventID: "evt-1",
		UserID:  "user-1",
		Tickets: []models.OrderLine{
			{ID: "line-1", OrderID: "order-1", TicketID: "tier-ga", TicketName: "GA", Quantity: 2, Amount: 200},
		},
		IssuedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestGenerateEncryptedQRProducesPNG(t *testing.T) {
	gen := NewGenerator("platform-secret")

	png, err := gen.GenerateEncryptedQR(samplePass())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	gen := NewGenerator("platform-secret")
	pass := samplePass()

	data, err := encryptAES(mustJSON(t, pass), gen.secret)
	require.NoError(t, err)

	got, err := gen.Decrypt(data)
	require.NoError(t, err)
	assert.Equal(t, pass.OrderID, got.OrderID)
	assert.Equal(t, pass.Tickets, got.Tickets)
}

func TestDecryptWrongSecretFails(t *testing.T) {
	gen := NewGenerator("platform-secret")
	other := NewGenerator("different-secret")

	data, err := encryptAES(mustJSON(t, samplePass()), gen.secret)
	require.NoError(t, err)

	// Wrong key yields garbage that cannot parse as a pass.
	_, err = other.Decrypt(data)
	assert.Error(t, err)
}

func TestDecryptRejectsShortPayload(t *testing.T) {
	gen := NewGenerator("platform-secret")
	_, err := gen.Decrypt("dG9vc2hvcnQ=")
	assert.Error(t, err)
}

func mustJSON(t *testing.T, pass Pass) []byte {
	t.Helper()
	data, err := json.Marshal(pass)
	require.NoError(t, err)
	return data
}
