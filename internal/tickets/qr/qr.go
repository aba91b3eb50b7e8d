package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"eventhub/internal/models"

	"github.com/skip2/go-qrcode"
)

// Pass is the payload baked into an entry QR code.
type Pass struct {
	OrderID  string             `json:"order_id"`
	EventID  string             `json:"event_id"`
	UserID   string             `json:"user_id"`
	Tickets  []models.OrderLine `json:"tickets"`
	IssuedAt time.Time          `json:"issued_at"`
}

type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

// GenerateEncryptedQR returns a PNG whose payload is the AES-encrypted
// pass, so a scanned code is opaque without the platform secret.
func (g *Generator) GenerateEncryptedQR(pass Pass) ([]byte, error) {
	data, err := json.Marshal(pass)
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// Decrypt reverses encryptAES for gate-side validation.
func (g *Generator) Decrypt(encoded string) (*Pass, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(g.secret)
	if err != nil {
		return nil, err
	}
	if len(raw) < aes.BlockSize {
		return nil, io.ErrUnexpectedEOF
	}

	iv := raw[:aes.BlockSize]
	data := make([]byte, len(raw)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, raw[aes.BlockSize:])

	pass := new(Pass)
	if err := json.Unmarshal(data, pass); err != nil {
		return nil, err
	}
	return pass, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
