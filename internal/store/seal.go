package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// sealPrefix versions the sealed-credential format.
const sealPrefix = "gcm1"

// sealValue encrypts a credential with AES-GCM. The output is
// base64(prefix || nonce || ciphertext).
func sealValue(value string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := gcm.Seal(nil, nonce, []byte(value), nil)
	raw := make([]byte, 0, len(sealPrefix)+len(nonce)+len(ct))
	raw = append(raw, sealPrefix...)
	raw = append(raw, nonce...)
	raw = append(raw, ct...)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// openValue reverses sealValue.
func openValue(sealed string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	if len(raw) < len(sealPrefix) || string(raw[:len(sealPrefix)]) != sealPrefix {
		return "", fmt.Errorf("unknown sealed format")
	}
	raw = raw[len(sealPrefix):]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("sealed value too short")
	}
	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
