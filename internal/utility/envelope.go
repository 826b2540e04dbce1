package utility

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Envelope is a sealed payload. Key travels in the share URL fragment and
// never reaches the server; Nonce and Ciphertext are what the server stores.
//
// Encodings follow libsodium's helpers so the browser client can open
// envelopes sealed here and the other way round: hex key, URL-safe unpadded
// base64 nonce and ciphertext.
type Envelope struct {
	Key        string
	Nonce      string
	Ciphertext string
}

var b64 = base64.RawURLEncoding

// Seal encrypts plaintext with a fresh random key using
// ChaCha20-Poly1305 (IETF).
func Seal(plaintext []byte) (Envelope, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return Envelope{}, fmt.Errorf("key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return Envelope{}, fmt.Errorf("aead: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, fmt.Errorf("nonce: %w", err)
	}

	ct := aead.Seal(nil, nonce, plaintext, nil)
	return Envelope{
		Key:        hex.EncodeToString(key),
		Nonce:      b64.EncodeToString(nonce),
		Ciphertext: b64.EncodeToString(ct),
	}, nil
}

// Open decrypts an envelope sealed by Seal or by the browser client.
func Open(env Envelope) ([]byte, error) {
	key, err := hex.DecodeString(env.Key)
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("key: wrong size")
	}
	nonce, err := b64.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	if len(nonce) != chacha20poly1305.NonceSize {
		return nil, errors.New("nonce: wrong size")
	}
	ct, err := b64.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aead: %w", err)
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, errors.New("auth failed")
	}
	return pt, nil
}
