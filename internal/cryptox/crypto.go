// Package cryptox implements the SuiLocker content cipher and hasher.
//
// Every entry payload, text or binary, is encrypted with AES-256-CBC and
// carried as a single hex string: hex(IV[16] || ciphertext). The key is
// normalized from arbitrary-length locker-key material with SHA-256, so a
// wallet signature of any length yields a valid 256-bit key. Text entries
// and file payloads share the identical envelope format and are
// interchangeable at the wire level.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/suilocker/suilocker/internal/common"
)

// IVSize is the envelope IV length. Decryption always slices this many
// bytes off the front of the decoded envelope.
const IVSize = aes.BlockSize

// NormalizeKey hashes arbitrary-length key material down to a 256-bit
// AES key. The same material always yields the same key.
func NormalizeKey(keyMaterial string) [32]byte {
	return sha256.Sum256([]byte(keyMaterial))
}

// Digest returns the SHA-256 hex digest of data. It is computed over
// plaintext before encryption so entry integrity can be checked without
// decrypting, and over locker-key material to build cache keys without
// leaking the material itself.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Encrypt encrypts plaintext under the normalized keyMaterial and returns
// the hex envelope hex(iv || ciphertext).
//
// A fresh random 16-byte IV is generated per call, so encrypting the same
// plaintext twice yields different envelopes. Empty plaintext is valid
// and produces an envelope holding one padding block.
func Encrypt(plaintext []byte, keyMaterial string) (string, error) {
	key := NormalizeKey(keyMaterial)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", err
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, IVSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[IVSize:], padded)

	return hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt: hex-decode, slice the first 16 bytes as IV,
// CBC-decrypt the remainder, strip padding.
//
// Malformed input (odd-length or non-hex characters, truncated envelope,
// ciphertext not a whole number of blocks) fails with
// common.ErrMalformedEnvelope. A wrong key fails with common.ErrDecrypt
// when padding validation rejects the output; callers additionally verify
// the plaintext digest against the entry hash, which catches the rare
// wrong-key decryption that still unpads cleanly.
func Decrypt(envelope string, keyMaterial string) ([]byte, error) {
	raw, err := hex.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedEnvelope, err)
	}
	if len(raw) < IVSize+aes.BlockSize {
		return nil, fmt.Errorf("%w: envelope too short (%d bytes)", common.ErrMalformedEnvelope, len(raw))
	}

	iv, ct := raw[:IVSize], raw[IVSize:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not block-aligned", common.ErrMalformedEnvelope, len(ct))
	}

	key := NormalizeKey(keyMaterial)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	unpadded, err := unpad(pt, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	return unpadded, nil
}

// EncryptString encrypts a UTF-8 string. Same envelope format as Encrypt.
func EncryptString(plaintext string, keyMaterial string) (string, error) {
	return Encrypt([]byte(plaintext), keyMaterial)
}

// DecryptString decrypts an envelope and interprets the result as UTF-8.
func DecryptString(envelope string, keyMaterial string) (string, error) {
	pt, err := Decrypt(envelope, keyMaterial)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// pad applies PKCS#7 padding. Always appends at least one byte, so empty
// input becomes one full block.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// unpad validates and strips PKCS#7 padding.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, common.ErrDecrypt
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, common.ErrDecrypt
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, common.ErrDecrypt
		}
	}
	return data[:len(data)-n], nil
}
