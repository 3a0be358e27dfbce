package wallet

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encrypted key file format: a one-line magic prefix followed by a JSON
// envelope. The key is derived with argon2id and the payload sealed with
// XChaCha20-Poly1305, so tampering with any envelope field fails the open.
const (
	envelopeVersion = 1
	saltSize        = 16
	filePrefix      = "LEASEKEY1\n"
)

var (
	ErrKeyAuthFailed = errors.New("key file authentication failed")
	ErrKeyInvalid    = errors.New("key file envelope is invalid")
)

type envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

func SealKey(passphrase string, privKeyHex string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, []byte(privKeyHex), nil)

	raw, err := json.Marshal(&envelope{
		Version:     envelopeVersion,
		KDF:         "argon2id",
		KDFTime:     2,
		KDFMemoryKB: 64 * 1024,
		KDFThreads:  1,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  ciphertext,
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

func OpenKey(passphrase string, data []byte) (string, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return "", ErrKeyInvalid
	}
	var env envelope
	if err := json.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return "", ErrKeyInvalid
	}
	if env.Version != envelopeVersion || env.KDF != "argon2id" {
		return "", ErrKeyInvalid
	}
	key := deriveKey(passphrase, env.Salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return "", ErrKeyAuthFailed
	}
	return string(plaintext), nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 2, 64*1024, 1, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// EncryptedKeyFile resolves the renewal signing key from an encrypted file
// on every call, decrypting at point of use and never caching plaintext.
type EncryptedKeyFile struct {
	Path       string
	Passphrase string
}

func (f *EncryptedKeyFile) LandlordKey(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	return OpenKey(f.Passphrase, data)
}

// StaticKey is a KeyResolver for keys already held in memory, typically
// derived from a configured mnemonic at startup.
type StaticKey string

func (k StaticKey) LandlordKey(_ context.Context) (string, error) {
	return string(k), nil
}
