// Package vault шифрует содержимое заявок и считает их отпечатки для поиска дублей.
package vault

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrMissingKey = errors.New("encryption key is not set")
	ErrCorrupted  = errors.New("ciphertext is corrupted")
)

const (
	infoSeal        = "form-submission-payload"
	infoFingerprint = "form-submission-fingerprint"
)

type Vault struct {
	aead  cipher.AEAD
	fpKey []byte
}

// New выводит из секрета два независимых ключа: для шифрования и для HMAC
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}

	sealKey, err := derive(secret, infoSeal, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	fpKey, err := derive(secret, infoFingerprint, sha256.Size)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(sealKey)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Vault{aead: aead, fpKey: fpKey}, nil
}

func derive(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// Seal возвращает nonce || ciphertext
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(plaintext)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (v *Vault) Open(data []byte) ([]byte, error) {
	n := v.aead.NonceSize()
	if len(data) < n+v.aead.Overhead() {
		return nil, ErrCorrupted
	}
	plain, err := v.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, ErrCorrupted
	}
	return plain, nil
}

// Fingerprint — детерминированный ключевой хэш канонического содержимого
func (v *Vault) Fingerprint(payload string) []byte {
	mac := hmac.New(sha256.New, v.fpKey)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
